package exchange

import "github.com/ethereum/go-ethereum/common"

// NativeAsset is the reserved sentinel identifying the chain's native
// currency inside the ledger. Token assets are the token contract address;
// no deployed contract can occupy the zero address, so the two namespaces
// never collide.
var NativeAsset = common.Address{}

// IsNative reports whether asset is the native-currency sentinel.
func IsNative(asset common.Address) bool {
	return asset == NativeAsset
}
