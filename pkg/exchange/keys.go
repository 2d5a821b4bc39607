package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema.
// Balances are point-read by (asset, owner); orders and events are
// zero-padded by sequence number so prefix scans come back in id order.
const (
	prefixBalance = "bal:"
	prefixOrder   = "ord:"
	prefixEvent   = "evt:"
	keyOrderSeq   = "seq:orders"
	keyEventSeq   = "seq:events"
)

// balanceKey returns the key for a ledger entry
// Format: "bal:{asset}:{owner}"
func balanceKey(asset, owner common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, asset.Hex(), owner.Hex()))
}

// orderKey returns the key for an order
// Format: "ord:{id}" with the id zero-padded to 20 digits
func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

// orderPrefix returns the prefix scanning all orders in id order
func orderPrefix() []byte {
	return []byte(prefixOrder)
}

// eventKey returns the key for a persisted event
// Format: "evt:{seq}" with the sequence zero-padded to 20 digits
func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvent, seq))
}

// eventPrefix returns the prefix scanning all events in emission order
func eventPrefix() []byte {
	return []byte(prefixEvent)
}
