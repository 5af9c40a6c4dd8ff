package domain

import "testing"

func TestMarketIsOpen(t *testing.T) {
	m := Market{Status: MarketStatusActive, OpeningTime: 100, ClosingTime: 200}

	cases := []struct {
		now  int64
		want bool
	}{
		{99, false},
		{100, true},
		{199, true},
		{200, false},
	}
	for _, tc := range cases {
		if got := m.IsOpen(tc.now); got != tc.want {
			t.Errorf("IsOpen(%d) = %v, want %v", tc.now, got, tc.want)
		}
	}

	created := Market{Status: MarketStatusCreated, OpeningTime: 100, ClosingTime: 200}
	if created.IsOpen(150) {
		t.Error("IsOpen = true for a market still in created status")
	}
}

func TestMarketIsResolvable(t *testing.T) {
	m := Market{Status: MarketStatusActive, ResolutionTime: 300}
	if m.IsResolvable(299) {
		t.Error("IsResolvable before resolution time")
	}
	if !m.IsResolvable(300) {
		t.Error("not IsResolvable at resolution time")
	}

	m.Status = MarketStatusResolved
	if m.IsResolvable(300) {
		t.Error("IsResolvable after already resolved")
	}
}

func TestMarketAccountIDs(t *testing.T) {
	m := Market{YesTokenID: "ty", NoTokenID: "tn", YesEscrowID: "ey", NoEscrowID: "en"}

	if m.TokenID(OutcomeYes) != "ty" || m.TokenID(OutcomeNo) != "tn" {
		t.Errorf("TokenID = %s/%s, want ty/tn", m.TokenID(OutcomeYes), m.TokenID(OutcomeNo))
	}
	if m.EscrowID(OutcomeYes) != "ey" || m.EscrowID(OutcomeNo) != "en" {
		t.Errorf("EscrowID = %s/%s, want ey/en", m.EscrowID(OutcomeYes), m.EscrowID(OutcomeNo))
	}
}

func TestOutcomeValid(t *testing.T) {
	if !OutcomeYes.Valid() || !OutcomeNo.Valid() {
		t.Error("yes/no outcomes reported invalid")
	}
	if Outcome("maybe").Valid() {
		t.Error("bogus outcome reported valid")
	}
}

func TestOrderRemainingAndFilled(t *testing.T) {
	o := Order{Quantity: 10, FilledQuantity: 4}
	if o.Remaining() != 6 || o.Filled() {
		t.Errorf("order = remaining %d filled %v, want 6/false", o.Remaining(), o.Filled())
	}

	o.FilledQuantity = 10
	if o.Remaining() != 0 || !o.Filled() {
		t.Errorf("order = remaining %d filled %v, want 0/true", o.Remaining(), o.Filled())
	}

	// Overfill clamps instead of wrapping.
	o.FilledQuantity = 12
	if o.Remaining() != 0 {
		t.Errorf("overfilled Remaining = %d, want 0", o.Remaining())
	}
}
