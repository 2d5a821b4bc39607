package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Bank is an in-memory Transferor for the devnet node and tests: a wallet
// table per asset plus ERC20-style allowances toward the exchange's custody
// account. The native asset (zero address) needs no allowance; pulling it
// models value attached to the call.
type Bank struct {
	mu      sync.Mutex
	custody common.Address

	// asset -> holder -> wallet balance
	wallets map[common.Address]map[common.Address]*uint256.Int

	// asset -> owner -> amount approved for custody pulls (tokens only)
	allowances map[common.Address]map[common.Address]*uint256.Int
}

// NewBank creates a bank whose custody account is the exchange itself.
func NewBank(custody common.Address) *Bank {
	return &Bank{
		custody:    custody,
		wallets:    make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Mint credits amount of asset to a wallet out of thin air. Devnet faucet.
func (b *Bank) Mint(asset, to common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.wallet(asset, to)
	b.setWallet(asset, to, new(uint256.Int).Add(cur, amount))
}

// Approve authorizes custody to pull up to amount of asset from owner.
// Replaces any previous allowance.
func (b *Bank) Approve(asset, owner common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.allowances[asset]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		b.allowances[asset] = m
	}
	m[owner] = amount.Clone()
}

// PullFrom moves amount from owner's wallet into custody. Token pulls spend
// allowance; native pulls only need the wallet balance.
func (b *Bank) PullFrom(asset, owner common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if asset != (common.Address{}) {
		allowed := b.allowance(asset, owner)
		if allowed.Lt(amount) {
			return fmt.Errorf("allowance too low: approved %s, pulling %s", allowed.Dec(), amount.Dec())
		}
		b.allowances[asset][owner] = new(uint256.Int).Sub(allowed, amount)
	}

	return b.move(asset, owner, b.custody, amount)
}

// PushTo releases amount from custody to owner's wallet.
func (b *Bank) PushTo(asset, owner common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(asset, b.custody, owner, amount)
}

// Transfer is a plain wallet-to-wallet transfer. Transfers into custody are
// refused outright: value only enters the exchange through a deposit pull,
// never by unsolicited send.
func (b *Bank) Transfer(asset, from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if to == b.custody {
		return fmt.Errorf("direct transfer to exchange custody refused")
	}
	return b.move(asset, from, to, amount)
}

// WalletBalance returns the external (non-custodied) balance of a holder.
func (b *Bank) WalletBalance(asset, holder common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wallet(asset, holder).Clone()
}

// CustodyBalance returns how much of asset the exchange holds in custody.
func (b *Bank) CustodyBalance(asset common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wallet(asset, b.custody).Clone()
}

func (b *Bank) move(asset, from, to common.Address, amount *uint256.Int) error {
	src := b.wallet(asset, from)
	if src.Lt(amount) {
		return fmt.Errorf("wallet balance too low: have %s, moving %s", src.Dec(), amount.Dec())
	}

	b.setWallet(asset, from, new(uint256.Int).Sub(src, amount))
	dst := b.wallet(asset, to)
	b.setWallet(asset, to, new(uint256.Int).Add(dst, amount))
	return nil
}

func (b *Bank) wallet(asset, holder common.Address) *uint256.Int {
	if m, ok := b.wallets[asset]; ok {
		if v, ok := m[holder]; ok {
			return v
		}
	}
	return uint256.NewInt(0)
}

func (b *Bank) setWallet(asset, holder common.Address, v *uint256.Int) {
	m, ok := b.wallets[asset]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		b.wallets[asset] = m
	}
	m[holder] = v
}

func (b *Bank) allowance(asset, owner common.Address) *uint256.Int {
	if m, ok := b.allowances[asset]; ok {
		if v, ok := m[owner]; ok {
			return v
		}
	}
	return uint256.NewInt(0)
}

var _ Transferor = (*Bank)(nil)
