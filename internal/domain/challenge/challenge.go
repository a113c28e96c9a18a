package challenge

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMissingWallet       = errors.New("wallet address is required")
	ErrMalformedSignature  = errors.New("malformed signature")
	ErrAddressMismatch     = errors.New("signature does not match wallet address")
	ErrUnknownClaimPurpose = errors.New("unknown claim purpose")
)

const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// Challenge is a one-shot message for a wallet to sign. The random nonce
// guarantees two challenges for the same wallet are never byte-identical, so a
// captured signature cannot be replayed against a later claim attempt.
type Challenge struct {
	Message  string `json:"message"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"timestamp"` // ms epoch
}

// purposeLabels maps wire claim types to the human-readable purpose line
// embedded in the signed message.
var purposeLabels = map[string]string{
	"welcome":       "welcome reward",
	"playgame":      "playtime reward",
	"uploadgame":    "game upload reward",
	"daily_checkin": "daily check-in reward",
	"claim_pending": "pending rewards",
}

// Build constructs the challenge text for a wallet and claim type.
func Build(walletAddress, claimType string) (*Challenge, error) {
	if walletAddress == "" {
		return nil, ErrMissingWallet
	}
	label, ok := purposeLabels[claimType]
	if !ok {
		return nil, ErrUnknownClaimPurpose
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, err
	}
	nonce := hex.EncodeToString(nonceBytes)
	issuedAt := time.Now().UnixMilli()

	message := fmt.Sprintf("Claim %s on FUN Planet\n\nWallet: %s\nTimestamp: %d\nNonce: %s",
		label, strings.ToLower(walletAddress), issuedAt, nonce)

	return &Challenge{Message: message, Nonce: nonce, IssuedAt: issuedAt}, nil
}

// Verify recovers the signer of a personal_sign signature over the exact
// message bytes and compares it case-insensitively to the expected address.
// Any mismatch or malformed input fails closed.
func Verify(message, signature, expectedAddress string) error {
	if expectedAddress == "" {
		return ErrMissingWallet
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return ErrMalformedSignature
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return ErrMalformedSignature
	}

	pubKey, err := crypto.SigToPub(hashMessage(message), sig)
	if err != nil {
		return ErrMalformedSignature
	}

	recovered := crypto.PubkeyToAddress(*pubKey).Hex()
	if !strings.EqualFold(recovered, expectedAddress) {
		return ErrAddressMismatch
	}
	return nil
}

// Sign produces a personal_sign signature for message with the given key.
// Production signatures come from the user's wallet; this exists for tests and
// the signclaim tool.
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(hashMessage(message), key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// hashMessage applies the EIP-191 personal message prefix before hashing.
func hashMessage(message string) []byte {
	prefixed := fmt.Sprintf("%s%d%s", personalSignPrefix, len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
