package tests

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/tkoide/exchequer/pkg/exchange"
)

func TestDepositNative(t *testing.T) {
	x, bank, rec := newTestExchange(t)

	depositNative(t, x, bank, alice, u(100))
	requireBalance(t, x, exchange.NativeAsset, alice, u(100))

	// Custody pool holds exactly what the ledger credits
	if got := bank.CustodyBalance(exchange.NativeAsset); !got.Eq(u(100)) {
		t.Errorf("custody = %s, want 100", got.Dec())
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	dep, ok := events[0].(exchange.DepositEvent)
	if !ok {
		t.Fatalf("expected DepositEvent, got %T", events[0])
	}
	if dep.User != alice || !dep.Amount.Eq(u(100)) || !dep.Balance.Eq(u(100)) {
		t.Errorf("bad deposit event: %+v", dep)
	}
}

func TestDepositNativeZeroAmount(t *testing.T) {
	x, _, rec := newTestExchange(t)

	// A zero-value deposit is accepted, credits nothing, and still records
	if err := x.DepositNative(alice, u(0)); err != nil {
		t.Fatalf("zero deposit failed: %v", err)
	}
	requireBalance(t, x, exchange.NativeAsset, alice, u(0))

	if len(rec.Events()) != 1 {
		t.Errorf("expected deposit event even for zero amount")
	}
}

func TestDepositToken(t *testing.T) {
	x, bank, _ := newTestExchange(t)

	depositToken(t, x, bank, tokenA, alice, u(500))
	requireBalance(t, x, tokenA, alice, u(500))

	// Wallet drained into custody
	if got := bank.WalletBalance(tokenA, alice); !got.IsZero() {
		t.Errorf("wallet = %s, want 0", got.Dec())
	}
}

func TestDepositTokenRejectsNative(t *testing.T) {
	x, _, rec := newTestExchange(t)

	err := x.DepositToken(alice, exchange.NativeAsset, u(10))
	if !errors.Is(err, exchange.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Errorf("failed deposit must not emit")
	}
}

func TestDepositTokenTransferFailure(t *testing.T) {
	x, bank, rec := newTestExchange(t)

	// No allowance approved: the pull must fail and nothing may be credited
	bank.Mint(tokenA, alice, u(100))
	err := x.DepositToken(alice, tokenA, u(100))
	if !errors.Is(err, exchange.ErrTransferFailed) {
		t.Errorf("expected ErrTransferFailed, got %v", err)
	}
	requireBalance(t, x, tokenA, alice, u(0))
	if got := bank.WalletBalance(tokenA, alice); !got.Eq(u(100)) {
		t.Errorf("wallet = %s, want untouched 100", got.Dec())
	}
	if len(rec.Events()) != 0 {
		t.Errorf("failed deposit must not emit")
	}
}

func TestWithdrawRoundTrip(t *testing.T) {
	x, bank, _ := newTestExchange(t)

	depositToken(t, x, bank, tokenA, alice, u(250))
	if err := x.WithdrawToken(alice, tokenA, u(250)); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	// Ledger at zero, wallet restored, custody net change zero
	requireBalance(t, x, tokenA, alice, u(0))
	if got := bank.WalletBalance(tokenA, alice); !got.Eq(u(250)) {
		t.Errorf("wallet = %s, want 250", got.Dec())
	}
	if got := bank.CustodyBalance(tokenA); !got.IsZero() {
		t.Errorf("custody = %s, want 0", got.Dec())
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	x, bank, _ := newTestExchange(t)

	depositNative(t, x, bank, alice, u(1))

	err := x.WithdrawNative(alice, u(100))
	if !errors.Is(err, exchange.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	requireBalance(t, x, exchange.NativeAsset, alice, u(1))
}

func TestWithdrawTokenRejectsNative(t *testing.T) {
	x, bank, _ := newTestExchange(t)

	depositNative(t, x, bank, alice, u(10))
	err := x.WithdrawToken(alice, exchange.NativeAsset, u(10))
	if !errors.Is(err, exchange.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}
}

func TestBalanceOfUnknownEntryIsZero(t *testing.T) {
	x, _, _ := newTestExchange(t)
	requireBalance(t, x, tokenA, bob, u(0))
}

func TestUnsolicitedTransferRejected(t *testing.T) {
	_, bank, _ := newTestExchange(t)

	// Sending value straight at the custody account must be refused:
	// nothing enters the exchange outside the deposit operations.
	bank.Mint(tokenA, alice, u(50))
	if err := bank.Transfer(tokenA, alice, custody, u(50)); err == nil {
		t.Error("expected direct transfer to custody to be refused")
	}
	if got := bank.WalletBalance(tokenA, alice); !got.Eq(u(50)) {
		t.Errorf("wallet = %s, want untouched 50", got.Dec())
	}
}

func TestConservationAcrossSequence(t *testing.T) {
	x, bank, _ := newTestExchange(t)

	depositToken(t, x, bank, tokenA, alice, u(300))
	depositToken(t, x, bank, tokenA, bob, u(200))
	if err := x.WithdrawToken(alice, tokenA, u(120)); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	// Sum of ledger entries equals exactly what custody holds
	total := new(uint256.Int).Add(x.BalanceOf(tokenA, alice), x.BalanceOf(tokenA, bob))
	if got := bank.CustodyBalance(tokenA); !got.Eq(total) {
		t.Errorf("custody = %s, ledger total = %s", got.Dec(), total.Dec())
	}
}
