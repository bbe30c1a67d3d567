// Generates a fresh secp256k1 key pair and prints the matching Tron base58
// address, for provisioning the service's receiving wallet.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fbsobreira/gotron-sdk/pkg/address"
)

func main() {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate key:", err)
		os.Exit(1)
	}

	fmt.Println("🔐 Private Key (hex):", hex.EncodeToString(crypto.FromECDSA(privateKey)))
	fmt.Println("📬 Tron Address:", address.PubkeyToAddress(privateKey.PublicKey))
}
