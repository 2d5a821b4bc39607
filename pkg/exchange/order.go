package exchange

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Order is a standing offer: the owner wants AmountGet of TokenGet and is
// offering AmountGive of TokenGive. Orders are never deleted; cancellation
// and fill are recorded as flags so the registry is a full audit trail.
type Order struct {
	ID         uint64         `json:"id"` // assigned at creation, first order = 1
	Owner      common.Address `json:"owner"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *uint256.Int   `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *uint256.Int   `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"` // creation time, Unix milliseconds

	// Terminal flags, each settable exactly once. An order with either set
	// is inert forever.
	Cancelled bool `json:"cancelled"`
	Filled    bool `json:"filled"`
}

// Terminal reports whether the order can never be acted on again.
func (o *Order) Terminal() bool {
	return o.Cancelled || o.Filled
}

// clone returns a copy safe to mutate while the stored order stays intact
// until the operation commits.
func (o *Order) clone() *Order {
	c := *o
	return &c
}
