// Package exchange implements the custody ledger and order registry: deposits
// and withdrawals of native currency and tokens, standing orders to trade one
// asset for another, owner cancellation, and fills with a fee charged to the
// filler. Every public operation is a single atomic call: it validates against
// current state, stages all of its writes into one Pebble batch, invokes the
// external transferor where value crosses the custody boundary, and commits
// all-or-nothing. A failed call leaves zero observable state change.
package exchange

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/tkoide/exchequer/pkg/exchange/token"
	"github.com/tkoide/exchequer/pkg/storage"
	"github.com/tkoide/exchequer/pkg/util"
)

// Config carries the two values fixed at creation. There is no setter for
// either; a different fee regime is a different exchange.
type Config struct {
	FeeAccount common.Address
	FeePercent uint64 // integer 0-100, fee = amountGet * FeePercent / 100 truncating
}

// Options are the injectable collaborators. Zero values get sane defaults:
// discard emitter, wall clock, nop logger.
type Options struct {
	Emitter Emitter
	Clock   util.Clock
	Logger  *zap.Logger
}

// Exchange owns the shared store and serializes every mutation behind one
// lock, so each call is an indivisible transaction against both tables.
type Exchange struct {
	mu sync.Mutex

	cfg    Config
	store  *storage.Store
	ledger *Ledger
	book   *book
	tokens token.Transferor

	emitter  Emitter
	clock    util.Clock
	log      *zap.Logger
	eventSeq uint64 // events persisted so far
}

func New(cfg Config, store *storage.Store, tokens token.Transferor, opts Options) (*Exchange, error) {
	if cfg.FeePercent > 100 {
		return nil, fmt.Errorf("fee percent must be 0-100, got %d", cfg.FeePercent)
	}
	if tokens == nil {
		return nil, fmt.Errorf("transferor is required")
	}

	b, err := newBook(store)
	if err != nil {
		return nil, err
	}

	x := &Exchange{
		cfg:     cfg,
		store:   store,
		ledger:  NewLedger(store),
		book:    b,
		tokens:  tokens,
		emitter: opts.Emitter,
		clock:   opts.Clock,
		log:     opts.Logger,
	}
	if x.emitter == nil {
		x.emitter = NopEmitter{}
	}
	if x.clock == nil {
		x.clock = util.RealClock{}
	}
	if x.log == nil {
		x.log = zap.NewNop()
	}

	raw, ok, err := store.Get([]byte(keyEventSeq))
	if err != nil {
		return nil, fmt.Errorf("exchange: load event counter: %w", err)
	}
	if ok {
		if _, err := fmt.Sscanf(string(raw), "%d", &x.eventSeq); err != nil {
			return nil, fmt.Errorf("exchange: corrupt event counter %q: %w", raw, err)
		}
	}

	return x, nil
}

// FeeAccount returns the fixed fee-collecting account.
func (x *Exchange) FeeAccount() common.Address { return x.cfg.FeeAccount }

// FeePercent returns the fixed fee percentage.
func (x *Exchange) FeePercent() uint64 { return x.cfg.FeePercent }

// ==============================
// Balance ledger operations
// ==============================

// DepositNative credits the value attached to the call to (native, caller).
// The transferor pull models the host moving the attached value; a zero
// amount is accepted and credits nothing.
func (x *Exchange) DepositNative(caller common.Address, amount *uint256.Int) error {
	amount = nonNil(amount)
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.store.NewBatch()
	defer batch.Close()
	tx := x.ledger.begin(batch)

	balance, err := tx.credit(NativeAsset, caller, amount)
	if err != nil {
		return err
	}

	if err := x.tokens.PullFrom(NativeAsset, caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	ev := DepositEvent{Asset: NativeAsset, User: caller, Amount: amount.Clone(), Balance: balance}
	if err := x.commit(batch, tx, nil, ev); err != nil {
		return err
	}

	x.log.Info("deposit",
		zap.String("asset", "native"),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.Dec()))
	return nil
}

// DepositToken pulls amount of asset from the caller's wallet into custody
// and credits (asset, caller). Native currency must use DepositNative.
// Either the pull succeeds and the credit commits, or neither happens.
func (x *Exchange) DepositToken(caller, asset common.Address, amount *uint256.Int) error {
	amount = nonNil(amount)
	if IsNative(asset) {
		return fmt.Errorf("%w: native currency must use DepositNative", ErrInvalidAsset)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.store.NewBatch()
	defer batch.Close()
	tx := x.ledger.begin(batch)

	balance, err := tx.credit(asset, caller, amount)
	if err != nil {
		return err
	}

	if err := x.tokens.PullFrom(asset, caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	ev := DepositEvent{Asset: asset, User: caller, Amount: amount.Clone(), Balance: balance}
	if err := x.commit(batch, tx, nil, ev); err != nil {
		return err
	}

	x.log.Info("deposit",
		zap.String("asset", asset.Hex()),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.Dec()))
	return nil
}

// WithdrawNative debits (native, caller) and releases the funds. The debit
// is staged before the transferor runs; a rejected release drops the batch
// so the debit never persists.
func (x *Exchange) WithdrawNative(caller common.Address, amount *uint256.Int) error {
	return x.withdraw(caller, NativeAsset, nonNil(amount))
}

// WithdrawToken is WithdrawNative for a token asset; the native sentinel is
// rejected here.
func (x *Exchange) WithdrawToken(caller, asset common.Address, amount *uint256.Int) error {
	if IsNative(asset) {
		return fmt.Errorf("%w: native currency must use WithdrawNative", ErrInvalidAsset)
	}
	return x.withdraw(caller, asset, nonNil(amount))
}

func (x *Exchange) withdraw(caller, asset common.Address, amount *uint256.Int) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.store.NewBatch()
	defer batch.Close()
	tx := x.ledger.begin(batch)

	balance, err := tx.debit(asset, caller, amount)
	if err != nil {
		return err
	}

	if err := x.tokens.PushTo(asset, caller, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	ev := WithdrawEvent{Asset: asset, User: caller, Amount: amount.Clone(), Balance: balance}
	if err := x.commit(batch, tx, nil, ev); err != nil {
		return err
	}

	x.log.Info("withdraw",
		zap.String("asset", asset.Hex()),
		zap.String("user", caller.Hex()),
		zap.String("amount", amount.Dec()))
	return nil
}

// BalanceOf returns the amount of asset credited to owner. Pure read.
func (x *Exchange) BalanceOf(asset, owner common.Address) *uint256.Int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.balance(asset, owner).Clone()
}

// ==============================
// Order book operations
// ==============================

// MakeOrder records a standing offer and returns its id. Ids count up from 1.
// No balance check happens here: an unbacked order is simply unfillable until
// a later deposit backs it.
func (x *Exchange) MakeOrder(caller, tokenGet common.Address, amountGet *uint256.Int, tokenGive common.Address, amountGive *uint256.Int) (uint64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	o := &Order{
		ID:         x.book.lastID + 1,
		Owner:      caller,
		TokenGet:   tokenGet,
		AmountGet:  nonNil(amountGet).Clone(),
		TokenGive:  tokenGive,
		AmountGive: nonNil(amountGive).Clone(),
		Timestamp:  x.clock.Now().UnixMilli(),
	}

	batch := x.store.NewBatch()
	defer batch.Close()

	apply, err := x.book.stage(batch, o)
	if err != nil {
		return 0, err
	}

	ev := OrderEvent{
		ID: o.ID, Owner: o.Owner,
		TokenGet: o.TokenGet, AmountGet: o.AmountGet,
		TokenGive: o.TokenGive, AmountGive: o.AmountGive,
		Timestamp: o.Timestamp,
	}
	if err := x.commit(batch, nil, apply, ev); err != nil {
		return 0, err
	}

	x.log.Info("order_created",
		zap.Uint64("id", o.ID),
		zap.String("owner", caller.Hex()))
	return o.ID, nil
}

// CancelOrder marks the order cancelled. Only the owner may cancel, only
// once, and never after a fill.
func (x *Exchange) CancelOrder(caller common.Address, id uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.book.get(id)
	if err != nil {
		return err
	}
	if o.Terminal() {
		return fmt.Errorf("%w: id %d", ErrOrderTerminal, id)
	}
	if o.Owner != caller {
		return fmt.Errorf("%w: order %d belongs to %s", ErrNotOwner, id, o.Owner.Hex())
	}

	c := o.clone()
	c.Cancelled = true

	batch := x.store.NewBatch()
	defer batch.Close()

	apply, err := x.book.stage(batch, c)
	if err != nil {
		return err
	}

	ev := CancelEvent{
		ID: c.ID, Owner: c.Owner,
		TokenGet: c.TokenGet, AmountGet: c.AmountGet,
		TokenGive: c.TokenGive, AmountGive: c.AmountGive,
		Timestamp: x.clock.Now().UnixMilli(),
	}
	if err := x.commit(batch, nil, apply, ev); err != nil {
		return err
	}

	x.log.Info("order_cancelled", zap.Uint64("id", id))
	return nil
}

// FillOrder settles an open order against the caller. The fee is charged to
// the filler on top of the order's asking amount, denominated in tokenGet:
//
//	fee   = amountGet * feePercent / 100   (truncating)
//	filler pays amountGet + fee of tokenGet, receives amountGive of tokenGive
//	owner receives amountGet of tokenGet, pays amountGive of tokenGive
//	fee account receives fee of tokenGet
//
// All five ledger legs commit as one step or not at all.
func (x *Exchange) FillOrder(caller common.Address, id uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.book.get(id)
	if err != nil {
		return err
	}
	if o.Terminal() {
		return fmt.Errorf("%w: id %d", ErrOrderTerminal, id)
	}

	fee, total, err := x.feeOn(o.AmountGet)
	if err != nil {
		return err
	}

	batch := x.store.NewBatch()
	defer batch.Close()
	tx := x.ledger.begin(batch)

	if _, err := tx.debit(o.TokenGet, caller, total); err != nil {
		return err
	}
	if _, err := tx.credit(o.TokenGet, o.Owner, o.AmountGet); err != nil {
		return err
	}
	if _, err := tx.credit(o.TokenGet, x.cfg.FeeAccount, fee); err != nil {
		return err
	}
	if _, err := tx.debit(o.TokenGive, o.Owner, o.AmountGive); err != nil {
		return err
	}
	if _, err := tx.credit(o.TokenGive, caller, o.AmountGive); err != nil {
		return err
	}

	f := o.clone()
	f.Filled = true
	apply, err := x.book.stage(batch, f)
	if err != nil {
		return err
	}

	ev := TradeEvent{
		ID: f.ID,
		TokenGet: f.TokenGet, AmountGet: f.AmountGet,
		TokenGive: f.TokenGive, AmountGive: f.AmountGive,
		Fee:   fee,
		Maker: f.Owner, Taker: caller,
		Timestamp: x.clock.Now().UnixMilli(),
	}
	if err := x.commit(batch, tx, apply, ev); err != nil {
		return err
	}

	x.log.Info("order_filled",
		zap.Uint64("id", id),
		zap.String("taker", caller.Hex()),
		zap.String("fee", fee.Dec()))
	return nil
}

// feeOn computes the filler surcharge and the filler's total obligation.
func (x *Exchange) feeOn(amountGet *uint256.Int) (fee, total *uint256.Int, err error) {
	product, overflow := new(uint256.Int).MulOverflow(amountGet, uint256.NewInt(x.cfg.FeePercent))
	if overflow {
		return nil, nil, fmt.Errorf("%w: fee on %s", ErrOverflow, amountGet.Dec())
	}
	fee = new(uint256.Int).Div(product, uint256.NewInt(100))

	total, overflow = new(uint256.Int).AddOverflow(amountGet, fee)
	if overflow {
		return nil, nil, fmt.Errorf("%w: total on %s", ErrOverflow, amountGet.Dec())
	}
	return fee, total, nil
}

// ==============================
// Queries
// ==============================

// Order returns a copy of the order with the given id.
func (x *Exchange) Order(id uint64) (*Order, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.book.get(id)
	if err != nil {
		return nil, err
	}
	return o.clone(), nil
}

// Orders returns every order ever created, in id order.
func (x *Exchange) Orders() ([]*Order, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.book.all()
}

// Events returns the persisted event history in emission order.
func (x *Exchange) Events() ([]EventRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var records []EventRecord
	var scanErr error
	err := x.store.Scan(eventPrefix(), func(_, val []byte) bool {
		var rec EventRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			scanErr = fmt.Errorf("exchange: corrupt event record: %w", err)
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return records, nil
}

// ==============================
// Commit path
// ==============================

// EventRecord is the persisted envelope of one emitted event.
type EventRecord struct {
	Seq  uint64          `json:"seq"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// commit stages the event into the batch, commits everything atomically,
// then applies staged state to the in-memory caches and emits. A Pebble
// commit failure after a transferor already moved value is unrecoverable,
// so it panics rather than report a half-applied operation as a clean error.
func (x *Exchange) commit(batch *storage.Batch, tx *ledgerTx, apply func(), ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("exchange: marshal %s event: %w", ev.Kind(), err)
	}
	seq := x.eventSeq + 1
	rec, err := json.Marshal(EventRecord{Seq: seq, Kind: ev.Kind(), Data: data})
	if err != nil {
		return fmt.Errorf("exchange: marshal event record: %w", err)
	}
	batch.Set(eventKey(seq), rec)
	batch.Set([]byte(keyEventSeq), []byte(fmt.Sprintf("%d", seq)))

	if err := batch.Commit(); err != nil {
		panic(fmt.Errorf("exchange: batch commit: %w", err))
	}

	if tx != nil {
		tx.apply()
	}
	if apply != nil {
		apply()
	}
	x.eventSeq = seq
	x.emitter.Emit(ev)
	return nil
}

func nonNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}
