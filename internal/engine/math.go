package engine

import (
	"math"

	"github.com/ipredict/engine/internal/domain"
)

// Checked arithmetic for monetary and quantity fields. Overflow is an error,
// never a silent wrap.

func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}

func subU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, domain.ErrMathOverflow
	}
	return a - b, nil
}

func mulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, domain.ErrMathOverflow
	}
	return a * b, nil
}

func divU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, domain.ErrMathOverflow
	}
	return a / b, nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
