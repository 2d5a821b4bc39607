package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/tkoide/exchequer/pkg/storage"
)

// book is the append-only order registry. Ids are assigned from a persisted
// counter so they stay monotonic across restarts. Like the ledger, it runs
// under the Exchange's lock and mutates only through staged batch writes.
type book struct {
	store  *storage.Store
	orders map[uint64]*Order // id -> order (cache over the store)
	lastID uint64            // highest id assigned so far
}

func newBook(store *storage.Store) (*book, error) {
	b := &book{
		store:  store,
		orders: make(map[uint64]*Order),
	}

	raw, ok, err := store.Get([]byte(keyOrderSeq))
	if err != nil {
		return nil, fmt.Errorf("book: load order counter: %w", err)
	}
	if ok {
		if _, err := fmt.Sscanf(string(raw), "%d", &b.lastID); err != nil {
			return nil, fmt.Errorf("book: corrupt order counter %q: %w", raw, err)
		}
	}

	return b, nil
}

// get returns the order with the given id, loading from the store on a cache
// miss. Returns ErrOrderNotFound for ids never assigned.
func (b *book) get(id uint64) (*Order, error) {
	if o, ok := b.orders[id]; ok {
		return o, nil
	}

	raw, ok, err := b.store.Get(orderKey(id))
	if err != nil {
		return nil, fmt.Errorf("book: load order %d: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}

	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("book: corrupt order %d: %w", id, err)
	}

	b.orders[id] = &o
	return &o, nil
}

// stage writes the order and, for new orders, the advanced counter into the
// batch. The caller applies the returned closure after commit to make the
// order visible in the cache.
func (b *book) stage(batch *storage.Batch, o *Order) (apply func(), err error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("book: marshal order %d: %w", o.ID, err)
	}

	batch.Set(orderKey(o.ID), data)
	if o.ID > b.lastID {
		batch.Set([]byte(keyOrderSeq), []byte(fmt.Sprintf("%d", o.ID)))
	}

	return func() {
		if o.ID > b.lastID {
			b.lastID = o.ID
		}
		b.orders[o.ID] = o
	}, nil
}

// all returns every order ever created, in id order, straight from the store.
func (b *book) all() ([]*Order, error) {
	var orders []*Order
	var scanErr error

	err := b.store.Scan(orderPrefix(), func(_, val []byte) bool {
		var o Order
		if err := json.Unmarshal(val, &o); err != nil {
			scanErr = fmt.Errorf("book: corrupt order record: %w", err)
			return false
		}
		orders = append(orders, &o)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}

	return orders, nil
}
