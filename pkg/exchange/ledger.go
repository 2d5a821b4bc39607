package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/tkoide/exchequer/pkg/storage"
)

type balKey struct {
	Asset common.Address
	Owner common.Address
}

// Ledger is the per-(asset, owner) credit table. It keeps an in-memory cache
// over the Pebble store; entries load lazily on first touch. All access runs
// under the Exchange's lock, so the ledger itself carries no mutex.
//
// Mutation only ever happens through a ledgerTx staged against a storage
// batch: nothing reaches the cache or the store until the whole operation's
// batch commits.
type Ledger struct {
	store    *storage.Store
	balances map[balKey]*uint256.Int
}

func NewLedger(store *storage.Store) *Ledger {
	return &Ledger{
		store:    store,
		balances: make(map[balKey]*uint256.Int),
	}
}

// balance returns the current credited amount for (asset, owner), loading
// from the store on a cache miss. A store read failure means the backing
// database is gone or corrupt; there is no way to keep serving a ledger
// whose entries cannot be read, so it panics.
func (l *Ledger) balance(asset, owner common.Address) *uint256.Int {
	k := balKey{Asset: asset, Owner: owner}
	if v, ok := l.balances[k]; ok {
		return v
	}

	raw, ok, err := l.store.Get(balanceKey(asset, owner))
	if err != nil {
		panic(fmt.Errorf("ledger: load balance %s/%s: %w", asset.Hex(), owner.Hex(), err))
	}

	v := uint256.NewInt(0)
	if ok {
		v, err = uint256.FromDecimal(string(raw))
		if err != nil {
			panic(fmt.Errorf("ledger: corrupt balance %s/%s: %w", asset.Hex(), owner.Hex(), err))
		}
	}

	l.balances[k] = v
	return v
}

// ledgerTx stages balance mutations for one exchange operation. Reads see
// staged writes, so multi-leg settlements (including self-fills touching the
// same entry twice) compose correctly. apply() must only run after the batch
// committed.
type ledgerTx struct {
	l      *Ledger
	batch  *storage.Batch
	staged map[balKey]*uint256.Int
}

func (l *Ledger) begin(batch *storage.Batch) *ledgerTx {
	return &ledgerTx{
		l:      l,
		batch:  batch,
		staged: make(map[balKey]*uint256.Int),
	}
}

func (tx *ledgerTx) balance(asset, owner common.Address) *uint256.Int {
	k := balKey{Asset: asset, Owner: owner}
	if v, ok := tx.staged[k]; ok {
		return v
	}
	return tx.l.balance(asset, owner)
}

// credit stages an increase and returns the resulting balance.
func (tx *ledgerTx) credit(asset, owner common.Address, amount *uint256.Int) (*uint256.Int, error) {
	cur := tx.balance(asset, owner)

	next, overflow := new(uint256.Int).AddOverflow(cur, amount)
	if overflow {
		return nil, fmt.Errorf("%w: credit %s to %s", ErrOverflow, amount.Dec(), owner.Hex())
	}

	tx.put(asset, owner, next)
	return next, nil
}

// debit stages a decrease and returns the resulting balance. A balance entry
// can never go negative.
func (tx *ledgerTx) debit(asset, owner common.Address, amount *uint256.Int) (*uint256.Int, error) {
	cur := tx.balance(asset, owner)

	if cur.Lt(amount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, cur.Dec(), amount.Dec())
	}

	next := new(uint256.Int).Sub(cur, amount)
	tx.put(asset, owner, next)
	return next, nil
}

func (tx *ledgerTx) put(asset, owner common.Address, v *uint256.Int) {
	tx.staged[balKey{Asset: asset, Owner: owner}] = v
	tx.batch.Set(balanceKey(asset, owner), []byte(v.Dec()))
}

// apply merges staged balances into the cache. Called once, after commit.
func (tx *ledgerTx) apply() {
	for k, v := range tx.staged {
		tx.l.balances[k] = v
	}
}
