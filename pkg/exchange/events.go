package exchange

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Every successful mutating operation emits exactly one event. Events are
// handed to the configured Emitter after the operation's batch has committed,
// and are also persisted to the store as part of that same batch, so the
// on-disk history and the live stream never diverge.

type Event interface {
	Kind() string
}

// Emitter receives events as operations commit. Implementations must not
// call back into the exchange.
type Emitter interface {
	Emit(ev Event)
}

// DepositEvent records a credit into custody.
type DepositEvent struct {
	Asset   common.Address `json:"asset"`
	User    common.Address `json:"user"`
	Amount  *uint256.Int   `json:"amount"`
	Balance *uint256.Int   `json:"balance"` // resulting ledger balance
}

func (DepositEvent) Kind() string { return "deposit" }

// WithdrawEvent records a release out of custody.
type WithdrawEvent struct {
	Asset   common.Address `json:"asset"`
	User    common.Address `json:"user"`
	Amount  *uint256.Int   `json:"amount"`
	Balance *uint256.Int   `json:"balance"` // resulting ledger balance
}

func (WithdrawEvent) Kind() string { return "withdraw" }

// OrderEvent records a newly created order, carrying all of its fields.
type OrderEvent struct {
	ID         uint64         `json:"id"`
	Owner      common.Address `json:"owner"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *uint256.Int   `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *uint256.Int   `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

func (OrderEvent) Kind() string { return "order" }

// CancelEvent records an owner cancellation: the order's original fields
// plus the time of the cancellation itself.
type CancelEvent struct {
	ID         uint64         `json:"id"`
	Owner      common.Address `json:"owner"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *uint256.Int   `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *uint256.Int   `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

func (CancelEvent) Kind() string { return "cancel" }

// TradeEvent records a fill: the five settled quantities plus both parties.
type TradeEvent struct {
	ID         uint64         `json:"id"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *uint256.Int   `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *uint256.Int   `json:"amountGive"`
	Fee        *uint256.Int   `json:"fee"`
	Maker      common.Address `json:"maker"` // order owner
	Taker      common.Address `json:"taker"` // filler
	Timestamp  int64          `json:"timestamp"`
}

func (TradeEvent) Kind() string { return "trade" }

// Recorder is an append-only in-memory Emitter, used by tests and anywhere
// history needs to be inspected without a live transport.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0, 64)}
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a snapshot copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// MultiEmitter fans one event out to several emitters in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// NopEmitter discards everything.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
