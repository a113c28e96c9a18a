package main

import (
	"crypto/ecdsa"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/funplanet/claim-api/internal/domain/challenge"
)

// signclaim is a dev tool: it builds and signs a claim challenge so the
// submit endpoint can be exercised without a browser wallet.
func main() {
	keyHex := flag.String("key", "", "hex private key (generates a fresh one when empty)")
	claimType := flag.String("type", "welcome", "claim type (welcome, playgame, uploadgame, daily_checkin, claim_pending)")
	flag.Parse()

	key, err := loadKey(*keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load key: %v\n", err)
		os.Exit(1)
	}

	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()

	ch, err := challenge.Build(wallet, *claimType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build challenge: %v\n", err)
		os.Exit(1)
	}

	sig, err := challenge.Sign(ch.Message, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign challenge: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wallet:    %s\n", wallet)
	fmt.Printf("key:       %x\n", crypto.FromECDSA(key))
	fmt.Printf("nonce:     %s\n", ch.Nonce)
	fmt.Printf("message:   %q\n", ch.Message)
	fmt.Printf("signature: %s\n", sig)
}

func loadKey(keyHex string) (*ecdsa.PrivateKey, error) {
	if keyHex == "" {
		return crypto.GenerateKey()
	}
	return crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
}
