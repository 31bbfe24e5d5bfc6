// Package chain writes confirmed score updates to the game contract.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stackerlabs/stacker/pkg/logger"
	"github.com/stackerlabs/stacker/pkg/metrics"
)

// contractABI covers the single state-changing call the service makes.
const contractABI = `[{"type":"function","name":"updatePlayerData","stateMutability":"nonpayable","inputs":[{"name":"player","type":"address"},{"name":"scoreAmount","type":"uint256"},{"name":"transactionAmount","type":"uint256"}],"outputs":[]}]`

const (
	defaultGasLimit     = uint64(200_000)
	defaultPollInterval = 500 * time.Millisecond
	defaultConfirmWait  = 60 * time.Second
)

// Client is the subset of the Ethereum RPC used by the submitter.
type Client interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Dial initialises an EVM RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// ParsePrivateKey normalises and parses the operator key. Accepts optional
// 0x prefix, surrounding quotes and whitespace.
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	k := strings.TrimSpace(raw)
	k = strings.Trim(k, `"'`)
	k = strings.ReplaceAll(k, " ", "")
	k = strings.TrimPrefix(strings.TrimPrefix(k, "0x"), "0X")
	if len(k) != 64 {
		return nil, fmt.Errorf("operator key must be 64 hex characters")
	}
	key, err := gethcrypto.HexToECDSA(strings.ToLower(k))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	return key, nil
}

// Submitter sends updatePlayerData calls and waits for their receipts.
// It does not retry: a blind retry of a state-changing call risks duplicate
// on-chain effects, so retry policy belongs to the caller.
type Submitter struct {
	client       Client
	key          *ecdsa.PrivateKey
	from         common.Address
	contract     common.Address
	chainID      *big.Int
	gasLimit     uint64
	pollInterval time.Duration
	confirmWait  time.Duration
	abi          abi.ABI
	logger       logger.Logger

	// Guards nonce assignment for the single operator key. Only the
	// fetch/sign/send window is serialized; receipt waits run concurrently.
	sendMu sync.Mutex
}

// Option applies a configuration option to the Submitter.
type Option func(*Submitter)

// WithGasLimit sets the gas limit attached to each call.
func WithGasLimit(limit uint64) Option {
	return func(s *Submitter) {
		if limit > 0 {
			s.gasLimit = limit
		}
	}
}

// WithPollInterval sets how often the receipt is polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithConfirmWait bounds how long one submission waits for its receipt.
func WithConfirmWait(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.confirmWait = d
		}
	}
}

// WithLogger sets a custom logger for the submitter.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSubmitter constructs a submitter for the given contract and operator key.
func NewSubmitter(client Client, key *ecdsa.PrivateKey, contract common.Address, chainID *big.Int, opts ...Option) (*Submitter, error) {
	if client == nil {
		return nil, errors.New("rpc client required")
	}
	if key == nil {
		return nil, errors.New("operator key required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id required")
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	s := &Submitter{
		client:       client,
		key:          key,
		from:         gethcrypto.PubkeyToAddress(key.PublicKey),
		contract:     contract,
		chainID:      new(big.Int).Set(chainID),
		gasLimit:     defaultGasLimit,
		pollInterval: defaultPollInterval,
		confirmWait:  defaultConfirmWait,
		abi:          parsed,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("chain")
	}
	return s, nil
}

// OperatorAddress returns the address the submitter signs with.
func (s *Submitter) OperatorAddress() common.Address {
	return s.from
}

// ChainID returns the chain the submitter targets.
func (s *Submitter) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Submit issues one updatePlayerData call and blocks until the receipt is
// observed. Returns the transaction hash on success. Every failure mode
// wraps ErrSubmitFailed with the underlying cause attached.
func (s *Submitter) Submit(ctx context.Context, player string, scoreDelta, txDelta int64) (string, error) {
	start := time.Now()
	txHash, err := s.submit(ctx, player, scoreDelta, txDelta)
	metrics.RecordChainSubmitLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordChainSubmitError()
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	return txHash, nil
}

func (s *Submitter) submit(ctx context.Context, player string, scoreDelta, txDelta int64) (string, error) {
	if scoreDelta < 0 || txDelta < 0 {
		return "", errors.New("negative delta")
	}
	data, err := s.abi.Pack("updatePlayerData",
		common.HexToAddress(player),
		big.NewInt(scoreDelta),
		big.NewInt(txDelta),
	)
	if err != nil {
		return "", fmt.Errorf("pack call: %w", err)
	}

	signed, err := s.signAndSend(ctx, data)
	if err != nil {
		return "", err
	}
	txHash := signed.Hash()
	s.logger.Debug(ctx, "transaction sent",
		logger.String("txHash", txHash.Hex()),
		logger.String("player", player),
		logger.Int64("scoreDelta", scoreDelta),
	)

	if err := s.waitConfirmed(ctx, txHash); err != nil {
		return "", err
	}
	return txHash.Hex(), nil
}

// signAndSend serializes nonce assignment so concurrent submissions from the
// one operator key never collide.
func (s *Submitter) signAndSend(ctx context.Context, data []byte) (*gethtypes.Transaction, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      s.gasLimit,
		To:       &s.contract,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}

// waitConfirmed polls for the receipt until it is observed, the transaction
// reverts, or the confirmation window closes.
func (s *Submitter) waitConfirmed(ctx context.Context, txHash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.confirmWait)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(waitCtx, txHash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %s", ErrReverted, txHash.Hex())
			}
			return nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmTimeout, txHash.Hex())
		case <-ticker.C:
		}
	}
}
