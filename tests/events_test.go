package tests

import (
	"testing"

	"github.com/tkoide/exchequer/pkg/exchange"
	"github.com/tkoide/exchequer/pkg/exchange/token"
)

func TestEmitterFanOut(t *testing.T) {
	store := openTestStore(t, testDBPath(t))
	bank := token.NewBank(custody)
	recA := exchange.NewRecorder()
	recB := exchange.NewRecorder()

	x, err := exchange.New(
		exchange.Config{FeeAccount: feeAccount, FeePercent: 10},
		store, bank,
		exchange.Options{
			Emitter: exchange.MultiEmitter{recA, recB},
			Clock:   testClock,
		},
	)
	if err != nil {
		t.Fatalf("failed to create exchange: %v", err)
	}

	depositNative(t, x, bank, alice, u(100))
	if _, err := x.MakeOrder(alice, tokenA, u(10), exchange.NativeAsset, u(5)); err != nil {
		t.Fatalf("make order: %v", err)
	}

	// Every committed event reaches every emitter, in the same order.
	a, b := recA.Events(), recB.Events()
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("event counts = %d/%d, want 2/2", len(a), len(b))
	}
	for i := range a {
		if a[i].Kind() != b[i].Kind() {
			t.Errorf("emitters diverged at %d: %s vs %s", i, a[i].Kind(), b[i].Kind())
		}
	}
	if a[0].Kind() != "deposit" || a[1].Kind() != "order" {
		t.Errorf("event kinds = [%s %s], want [deposit order]", a[0].Kind(), a[1].Kind())
	}
}
