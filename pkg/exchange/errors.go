package exchange

import "errors"

// Every public operation either completes fully or fails with one of these
// and zero observable state change. Callers match with errors.Is; wrapped
// detail carries the specifics.
var (
	// ErrInvalidAsset: the native sentinel where a token was required, or vice versa.
	ErrInvalidAsset = errors.New("invalid asset for operation")

	// ErrInsufficientBalance: a debit would drive a balance entry negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOrderNotFound: the order id was never assigned.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOwner: an owner-restricted transition attempted by someone else.
	ErrNotOwner = errors.New("caller is not the order owner")

	// ErrOrderTerminal: the order is already cancelled or filled.
	ErrOrderTerminal = errors.New("order already cancelled or filled")

	// ErrTransferFailed: the external token transfer dependency rejected.
	ErrTransferFailed = errors.New("external transfer failed")

	// ErrOverflow: an amount computation exceeded 256 bits.
	ErrOverflow = errors.New("arithmetic overflow")
)
