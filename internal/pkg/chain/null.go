package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
)

// NullClient satisfies Client without touching a chain. Selected explicitly at
// construction time when no RPC endpoint is configured (dev, CI); handlers and
// the orchestrator never feature-detect at runtime.
type NullClient struct {
	seq atomic.Uint64
}

// NewNullClient creates a no-op chain client.
func NewNullClient() *NullClient {
	return &NullClient{}
}

// Transfer logs the would-be transfer and returns a deterministic fake hash.
func (c *NullClient) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	n := c.seq.Add(1)
	sum := crypto.Keccak256([]byte(fmt.Sprintf("%s:%s:%d", to, amount.String(), n)))
	hash := "0x" + hex.EncodeToString(sum)
	log.Info().
		Str("tx_hash", hash).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("Null chain client: transfer skipped")
	return hash, nil
}

// Balances reports zero balances.
func (c *NullClient) Balances(ctx context.Context) (*Balances, error) {
	return &Balances{Wallet: "0x0000000000000000000000000000000000000000", Token: big.NewInt(0), Native: big.NewInt(0)}, nil
}
