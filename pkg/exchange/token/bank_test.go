package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	custody = common.HexToAddress("0xEc5e000000000000000000000000000000000001")
	asset   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	owner   = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	other   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

func TestPullRequiresAllowance(t *testing.T) {
	b := NewBank(custody)
	b.Mint(asset, owner, u(100))

	if err := b.PullFrom(asset, owner, u(100)); err == nil {
		t.Error("pull without allowance must fail")
	}

	b.Approve(asset, owner, u(60))
	if err := b.PullFrom(asset, owner, u(60)); err != nil {
		t.Fatalf("approved pull failed: %v", err)
	}

	// Allowance is spent, not reusable
	if err := b.PullFrom(asset, owner, u(1)); err == nil {
		t.Error("pull beyond spent allowance must fail")
	}

	if got := b.CustodyBalance(asset); !got.Eq(u(60)) {
		t.Errorf("custody = %s, want 60", got.Dec())
	}
	if got := b.WalletBalance(asset, owner); !got.Eq(u(40)) {
		t.Errorf("wallet = %s, want 40", got.Dec())
	}
}

func TestNativePullNeedsNoAllowance(t *testing.T) {
	b := NewBank(custody)
	native := common.Address{}

	b.Mint(native, owner, u(10))
	if err := b.PullFrom(native, owner, u(10)); err != nil {
		t.Fatalf("native pull failed: %v", err)
	}

	// But it still needs the wallet balance
	if err := b.PullFrom(native, owner, u(1)); err == nil {
		t.Error("pull beyond wallet balance must fail")
	}
}

func TestPushReleasesFromCustody(t *testing.T) {
	b := NewBank(custody)
	b.Mint(asset, owner, u(30))
	b.Approve(asset, owner, u(30))
	if err := b.PullFrom(asset, owner, u(30)); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	if err := b.PushTo(asset, owner, u(30)); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if got := b.WalletBalance(asset, owner); !got.Eq(u(30)) {
		t.Errorf("wallet = %s, want 30", got.Dec())
	}

	// Custody is empty now
	if err := b.PushTo(asset, owner, u(1)); err == nil {
		t.Error("push beyond custody must fail")
	}
}

func TestTransferIntoCustodyRefused(t *testing.T) {
	b := NewBank(custody)
	b.Mint(asset, owner, u(10))

	if err := b.Transfer(asset, owner, custody, u(10)); err == nil {
		t.Error("unsolicited transfer into custody must be refused")
	}
	if err := b.Transfer(asset, owner, other, u(10)); err != nil {
		t.Errorf("ordinary transfer failed: %v", err)
	}
}
