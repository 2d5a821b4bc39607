// Command keygen generates a secp256k1 key pair and prints the address and
// private key. Used to credential devnet callers against the signed API.
package main

import (
	"fmt"
	"log"

	"github.com/tkoide/exchequer/pkg/crypto"
)

func main() {
	signer, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("keygen: %v", err)
	}

	fmt.Printf("address:     %s\n", signer.Address().Hex())
	fmt.Printf("private key: %s\n", signer.PrivateKeyHex())
}
