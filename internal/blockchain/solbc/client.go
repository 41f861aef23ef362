// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc/rpc"
)

// MaxAccountsPerRequest – лимит getMultipleAccounts
const MaxAccountsPerRequest = 100

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrConfirmationTimeout  = errors.New("confirmation timeout")
	ErrTransactionFailed    = errors.New("transaction failed on chain")
	defaultConfirmationWait = 60 * time.Second
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через пул RPC узлов.
type Client struct {
	pool       *rpc.Pool
	commitment solanarpc.CommitmentType
	logger     *zap.Logger
}

// NewClient создаёт клиент поверх пула узлов.
func NewClient(urls []string, opts rpc.Options, commitment solanarpc.CommitmentType, logger *zap.Logger) (*Client, error) {
	pool, err := rpc.NewPool(urls, opts, logger)
	if err != nil {
		return nil, err
	}
	if commitment == "" {
		commitment = solanarpc.CommitmentConfirmed
	}
	return &Client{
		pool:       pool,
		commitment: commitment,
		logger:     logger.Named("solbc-client"),
	}, nil
}

// FetchAccount returns the raw data of one account.
func (c *Client) FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	data, err := c.FetchAccounts(ctx, []solana.PublicKey{address})
	if err != nil {
		return nil, err
	}
	if data[0] == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return data[0], nil
}

// FetchAccounts returns account data in request order; missing accounts come back nil.
// Large requests are split into chunks fetched in parallel.
func (c *Client) FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([][]byte, error) {
	out := make([][]byte, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(addresses); start += MaxAccountsPerRequest {
		end := min(start+MaxAccountsPerRequest, len(addresses))
		chunk := addresses[start:end]
		offset := start
		g.Go(func() error {
			res, err := c.getMultipleAccounts(gctx, chunk)
			if err != nil {
				return err
			}
			for i, acc := range res.Value {
				if acc == nil || acc.Data == nil {
					continue
				}
				out[offset+i] = acc.Data.GetBinary()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
	opts := solanarpc.GetMultipleAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	}
	res, err := rpc.Execute(ctx, c.pool, "getMultipleAccounts", func(ctx context.Context, node *rpc.NodeClient) (*solanarpc.GetMultipleAccountsResult, error) {
		return node.Client.GetMultipleAccountsWithOpts(ctx, pubkeys, &opts)
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Int("accounts", len(pubkeys)), zap.Error(err))
		return nil, err
	}
	if len(res.Value) != len(pubkeys) {
		return nil, fmt.Errorf("getMultipleAccounts returned %d accounts for %d keys", len(res.Value), len(pubkeys))
	}
	return res, nil
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := rpc.Execute(ctx, c.pool, "getLatestBlockhash", func(ctx context.Context, node *rpc.NodeClient) (*solanarpc.GetLatestBlockhashResult, error) {
		return node.Client.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	})
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	res, err := rpc.Execute(ctx, c.pool, "simulateTransaction", func(ctx context.Context, node *rpc.NodeClient) (*solanarpc.SimulateTransactionResponse, error) {
		return node.Client.SimulateTransactionWithOpts(ctx, tx, &solanarpc.SimulateTransactionOpts{
			Commitment: c.commitment,
		})
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if res.Value.UnitsConsumed != nil {
		units = *res.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           res.Value.Err,
		Logs:          res.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	preflight := opts.PreflightCommitment
	if preflight == "" {
		preflight = c.commitment
	}
	sig, err := rpc.Execute(ctx, c.pool, "sendTransaction", func(ctx context.Context, node *rpc.NodeClient) (solana.Signature, error) {
		return node.Client.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: preflight,
		})
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// WaitForTransactionConfirmation ожидает подтверждения транзакции (polling).
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment solanarpc.CommitmentType) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(defaultConfirmationWait)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
			statuses, err := rpc.Execute(ctx, c.pool, "getSignatureStatuses", func(ctx context.Context, node *rpc.NodeClient) (*solanarpc.GetSignatureStatusesResult, error) {
				return node.Client.GetSignatureStatuses(ctx, false, signature)
			})
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, status.Err)
			}
			if reached(status.ConfirmationStatus, commitment) {
				return nil
			}
		}
	}
}

func reached(status solanarpc.ConfirmationStatusType, want solanarpc.CommitmentType) bool {
	switch status {
	case solanarpc.ConfirmationStatusFinalized:
		return true
	case solanarpc.ConfirmationStatusConfirmed:
		return want != solanarpc.CommitmentFinalized
	case solanarpc.ConfirmationStatusProcessed:
		return want == solanarpc.CommitmentProcessed
	}
	return false
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
