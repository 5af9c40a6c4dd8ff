package domain

import "errors"

var (
	// Validation.
	ErrInvalidOrderPrice    = errors.New("invalid order price")
	ErrInvalidOrderQuantity = errors.New("invalid order quantity")
	ErrInvalidTimeParams    = errors.New("invalid time parameters")
	ErrInvalidOutcome       = errors.New("invalid outcome")
	ErrNameTooLong          = errors.New("name too long")
	ErrDescriptionTooLong   = errors.New("description too long")

	// Market / book state.
	ErrMarketNotOpen       = errors.New("market not open")
	ErrMarketResolved      = errors.New("market already resolved")
	ErrMarketNotResolvable = errors.New("market not yet resolvable")
	ErrInvalidResolution   = errors.New("invalid resolution")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderBookFull       = errors.New("order book full")
	ErrNotFound            = errors.New("not found")

	// Authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// Arithmetic. Monetary and quantity math never silently wraps.
	ErrMathOverflow = errors.New("math overflow")

	// Funding.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientFunds   = errors.New("insufficient vault funds")
	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrAlreadyClaimed      = errors.New("winnings already claimed")

	// Infrastructure.
	ErrLockHeld = errors.New("lock already held")
)
