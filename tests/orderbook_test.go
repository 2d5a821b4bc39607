package tests

import (
	"errors"
	"testing"

	"github.com/tkoide/exchequer/pkg/exchange"
)

func TestMakeOrderAssignsSequentialIDs(t *testing.T) {
	x, _, _ := newTestExchange(t)

	// Ids count up from 1 regardless of which account creates the order
	id1, err := x.MakeOrder(alice, tokenA, u(10), exchange.NativeAsset, u(1))
	if err != nil {
		t.Fatalf("make order: %v", err)
	}
	id2, err := x.MakeOrder(bob, tokenB, u(20), tokenA, u(5))
	if err != nil {
		t.Fatalf("make order: %v", err)
	}
	id3, err := x.MakeOrder(alice, tokenA, u(1), tokenB, u(1))
	if err != nil {
		t.Fatalf("make order: %v", err)
	}

	if id1 != 1 || id2 != 2 || id3 != 3 {
		t.Errorf("ids = %d, %d, %d, want 1, 2, 3", id1, id2, id3)
	}
}

func TestMakeOrderNeedsNoBacking(t *testing.T) {
	x, _, rec := newTestExchange(t)

	// No balance check at creation: an unbacked order is legal, just unfillable
	id, err := x.MakeOrder(alice, tokenA, u(100), tokenB, u(50))
	if err != nil {
		t.Fatalf("unbacked order rejected: %v", err)
	}

	o, err := x.Order(id)
	if err != nil {
		t.Fatalf("order lookup: %v", err)
	}
	if o.Owner != alice || o.Cancelled || o.Filled {
		t.Errorf("unexpected order state: %+v", o)
	}
	if !o.AmountGet.Eq(u(100)) || !o.AmountGive.Eq(u(50)) {
		t.Errorf("amounts = %s/%s, want 100/50", o.AmountGet.Dec(), o.AmountGive.Dec())
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(exchange.OrderEvent); !ok {
		t.Errorf("expected OrderEvent, got %T", events[0])
	}
}

func TestSelfReferentialOrderIsLegal(t *testing.T) {
	x, _, _ := newTestExchange(t)

	// Same asset on both sides: economically meaningless but well-formed
	if _, err := x.MakeOrder(alice, tokenA, u(10), tokenA, u(10)); err != nil {
		t.Errorf("self-referential order rejected: %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	x, _, rec := newTestExchange(t)

	id, _ := x.MakeOrder(alice, tokenA, u(10), exchange.NativeAsset, u(1))

	if err := x.CancelOrder(alice, id); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	o, _ := x.Order(id)
	if !o.Cancelled {
		t.Error("order not marked cancelled")
	}
	if o.Filled {
		t.Error("cancelled order must not be filled")
	}

	events := rec.Events()
	last := events[len(events)-1]
	if _, ok := last.(exchange.CancelEvent); !ok {
		t.Errorf("expected CancelEvent, got %T", last)
	}
}

func TestCancelOrderNotOwner(t *testing.T) {
	x, _, _ := newTestExchange(t)

	id, _ := x.MakeOrder(alice, tokenA, u(10), exchange.NativeAsset, u(1))

	err := x.CancelOrder(bob, id)
	if !errors.Is(err, exchange.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	// Order stays open
	o, _ := x.Order(id)
	if o.Cancelled || o.Filled {
		t.Error("order must remain open after rejected cancel")
	}
}

func TestCancelOrderTwice(t *testing.T) {
	x, _, _ := newTestExchange(t)

	id, _ := x.MakeOrder(alice, tokenA, u(10), exchange.NativeAsset, u(1))
	if err := x.CancelOrder(alice, id); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}

	err := x.CancelOrder(alice, id)
	if !errors.Is(err, exchange.ErrOrderTerminal) {
		t.Errorf("expected ErrOrderTerminal, got %v", err)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	x, _, _ := newTestExchange(t)

	err := x.CancelOrder(alice, 42)
	if !errors.Is(err, exchange.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrdersListsEverythingInIDOrder(t *testing.T) {
	x, _, _ := newTestExchange(t)

	x.MakeOrder(alice, tokenA, u(1), tokenB, u(1))
	id2, _ := x.MakeOrder(bob, tokenB, u(2), tokenA, u(2))
	x.CancelOrder(bob, id2)

	orders, err := x.Orders()
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != 1 || orders[1].ID != 2 {
		t.Errorf("order ids = %d, %d, want 1, 2", orders[0].ID, orders[1].ID)
	}
	// Cancelled orders stay listed: the registry is an audit trail
	if !orders[1].Cancelled {
		t.Error("cancelled order missing its flag in listing")
	}
}
