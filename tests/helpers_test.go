package tests

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/tkoide/exchequer/pkg/exchange"
	"github.com/tkoide/exchequer/pkg/exchange/token"
	"github.com/tkoide/exchequer/pkg/storage"
	"github.com/tkoide/exchequer/pkg/util"
)

var (
	alice      = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob        = common.HexToAddress("0xBB00000000000000000000000000000000000000")
	feeAccount = common.HexToAddress("0xFee0000000000000000000000000000000000000")
	custody    = common.HexToAddress("0xEc5e000000000000000000000000000000000001")
	tokenA     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB     = common.HexToAddress("0x1000000000000000000000000000000000000002")
)

var testClock = util.FixedClock{T: time.UnixMilli(1700000000000)}

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

// newTestExchange creates an exchange with feePercent=10 over a temporary
// database. Each test gets a unique path to avoid Pebble lock conflicts.
func newTestExchange(t *testing.T) (*exchange.Exchange, *token.Bank, *exchange.Recorder) {
	dbPath := testDBPath(t)

	store := openTestStore(t, dbPath)
	bank := token.NewBank(custody)
	rec := exchange.NewRecorder()

	x := openTestExchange(t, store, bank, rec)
	return x, bank, rec
}

func testDBPath(t *testing.T) string {
	dbPath := fmt.Sprintf("./tmp_test_%s.db", t.Name())
	os.RemoveAll(dbPath)
	t.Cleanup(func() {
		os.RemoveAll(dbPath)
	})
	return dbPath
}

func openTestStore(t *testing.T, dbPath string) *storage.Store {
	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		// The test may have already closed the store (e.g. reopen tests);
		// pebble panics on double-close, so swallow that in this safety net.
		defer func() { _ = recover() }()
		store.Close()
	})
	return store
}

func openTestExchange(t *testing.T, store *storage.Store, bank *token.Bank, rec *exchange.Recorder) *exchange.Exchange {
	x, err := exchange.New(
		exchange.Config{FeeAccount: feeAccount, FeePercent: 10},
		store, bank,
		exchange.Options{Emitter: rec, Clock: testClock},
	)
	if err != nil {
		t.Fatalf("failed to create exchange: %v", err)
	}
	return x
}

// fund mints wallet value and, for tokens, approves the exchange to pull it.
func fund(bank *token.Bank, asset, owner common.Address, amount *uint256.Int) {
	bank.Mint(asset, owner, amount)
	if asset != exchange.NativeAsset {
		bank.Approve(asset, owner, amount)
	}
}

// depositToken funds and deposits in one step.
func depositToken(t *testing.T, x *exchange.Exchange, bank *token.Bank, asset, owner common.Address, amount *uint256.Int) {
	t.Helper()
	fund(bank, asset, owner, amount)
	if err := x.DepositToken(owner, asset, amount); err != nil {
		t.Fatalf("deposit %s of %s for %s failed: %v", amount.Dec(), asset.Hex(), owner.Hex(), err)
	}
}

// depositNative funds the wallet and deposits native currency in one step.
func depositNative(t *testing.T, x *exchange.Exchange, bank *token.Bank, owner common.Address, amount *uint256.Int) {
	t.Helper()
	fund(bank, exchange.NativeAsset, owner, amount)
	if err := x.DepositNative(owner, amount); err != nil {
		t.Fatalf("native deposit %s for %s failed: %v", amount.Dec(), owner.Hex(), err)
	}
}

// requireBalance asserts a ledger balance.
func requireBalance(t *testing.T, x *exchange.Exchange, asset, owner common.Address, want *uint256.Int) {
	t.Helper()
	got := x.BalanceOf(asset, owner)
	if !got.Eq(want) {
		t.Errorf("balance(%s, %s) = %s, want %s", asset.Hex(), owner.Hex(), got.Dec(), want.Dec())
	}
}
