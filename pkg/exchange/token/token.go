// Package token abstracts the external value-transfer primitive the exchange
// custodies through. The exchange only ever sees success or failure with
// exact-amount semantics; it assumes nothing else about the backend.
package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transferor moves value between an owner's external wallet and exchange
// custody. The native currency is addressed with the zero-asset sentinel,
// same as in the ledger.
//
// Implementations must be all-or-nothing per call: on error no value moved.
type Transferor interface {
	// PullFrom moves amount of asset from owner's wallet into custody.
	PullFrom(asset, owner common.Address, amount *uint256.Int) error

	// PushTo releases amount of asset from custody back to owner's wallet.
	PushTo(asset, owner common.Address, amount *uint256.Int) error
}
