// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// AccountReader читает сырые данные аккаунтов.
type AccountReader interface {
	// FetchAccount возвращает данные аккаунта или solbc.ErrAccountNotFound.
	FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
	// FetchAccounts возвращает данные в порядке адресов, nil для отсутствующих.
	FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([][]byte, error)
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	AccountReader
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Симулировать транзакцию.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Ожидание подтверждения транзакции.
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
}
