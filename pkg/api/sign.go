package api

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Operation messages. The client signs the Keccak256 of these byte strings;
// the server recovers the signer address and uses it as the caller identity.
// Amounts are rendered in decimal and fields joined with '|' so the message
// is unambiguous and trivially reproducible in any client.

func DepositNativeMessage(amount *uint256.Int) []byte {
	return []byte("exchequer|deposit-native|" + amount.Dec())
}

func DepositTokenMessage(asset common.Address, amount *uint256.Int) []byte {
	return []byte("exchequer|deposit-token|" + asset.Hex() + "|" + amount.Dec())
}

func WithdrawNativeMessage(amount *uint256.Int) []byte {
	return []byte("exchequer|withdraw-native|" + amount.Dec())
}

func WithdrawTokenMessage(asset common.Address, amount *uint256.Int) []byte {
	return []byte("exchequer|withdraw-token|" + asset.Hex() + "|" + amount.Dec())
}

func MakeOrderMessage(tokenGet common.Address, amountGet *uint256.Int, tokenGive common.Address, amountGive *uint256.Int) []byte {
	return []byte("exchequer|make-order|" +
		tokenGet.Hex() + "|" + amountGet.Dec() + "|" +
		tokenGive.Hex() + "|" + amountGive.Dec())
}

func CancelOrderMessage(id uint64) []byte {
	return []byte(fmt.Sprintf("exchequer|cancel-order|%d", id))
}

func FillOrderMessage(id uint64) []byte {
	return []byte(fmt.Sprintf("exchequer|fill-order|%d", id))
}
