package asset

import "errors"

// Caller-input failures. Each is reported before any state is touched.
var (
	ErrEmptySymbol         = errors.New("symbol is empty")
	ErrSymbolTooLong       = errors.New("symbol too long")
	ErrInvalidPrecision    = errors.New("precision too large")
	ErrTokenNotExist       = errors.New("token does not exist")
	ErrZeroAmount          = errors.New("amount must be non-zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTokenType    = errors.New("invalid token type")
)
