package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

var ErrNotConfigured = errors.New("chain client not configured")

// erc20ABI is the subset of the token contract the service calls.
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// Balances holds the hot reward wallet's on-chain balances.
type Balances struct {
	Wallet string   `json:"wallet"`
	Token  *big.Int `json:"token"`
	Native *big.Int `json:"native"`
}

// Client submits CAMLY transfers from the hot reward wallet and reads its
// balances. Implementations must be safe for concurrent use.
type Client interface {
	Transfer(ctx context.Context, to string, amount *big.Int) (txHash string, err error)
	Balances(ctx context.Context) (*Balances, error)
}

// ERC20Client is the production implementation over a JSON-RPC endpoint.
type ERC20Client struct {
	eth     *ethclient.Client
	abi     abi.ABI
	token   common.Address
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	timeout time.Duration
}

// Config for the ERC20 client.
type Config struct {
	RPCURL        string
	TokenContract string
	PrivateKeyHex string
	ChainID       int64
	SubmitTimeout time.Duration
}

// NewERC20Client dials the RPC endpoint and prepares the signing key.
func NewERC20Client(cfg Config) (*ERC20Client, error) {
	if cfg.RPCURL == "" || cfg.TokenContract == "" || cfg.PrivateKeyHex == "" {
		return nil, ErrNotConfigured
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse reward wallet key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ERC20Client{
		eth:     eth,
		abi:     parsed,
		token:   common.HexToAddress(cfg.TokenContract),
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(cfg.ChainID),
		timeout: timeout,
	}, nil
}

// Transfer submits transfer(to, amount) on the token contract, signed by the
// hot wallet. The call is not retried here: a timed-out send may still land,
// so the orchestrator treats any error as "funds not sent" only after rollback.
func (c *ERC20Client) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	recipient := common.HexToAddress(to)
	data, err := c.abi.Pack("transfer", recipient, amount)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &c.token, Data: data})
	if err != nil {
		// Estimation can fail on congested nodes even for valid transfers
		gasLimit = 100_000
	}

	tx := types.NewTransaction(nonce, c.token, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	hash := signed.Hash().Hex()
	log.Info().
		Str("tx_hash", hash).
		Str("to", recipient.Hex()).
		Str("amount", amount.String()).
		Msg("Token transfer submitted")
	return hash, nil
}

// Balances returns the hot wallet's token and native balances.
func (c *ERC20Client) Balances(ctx context.Context) (*Balances, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.abi.Pack("balanceOf", c.from)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &c.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	results, err := c.abi.Unpack("balanceOf", out)
	if err != nil || len(results) != 1 {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	token, ok := results[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected balanceOf result type")
	}

	native, err := c.eth.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return nil, fmt.Errorf("native balance: %w", err)
	}

	return &Balances{Wallet: c.from.Hex(), Token: token, Native: native}, nil
}

// HotWallet returns the sending address.
func (c *ERC20Client) HotWallet() string { return c.from.Hex() }
