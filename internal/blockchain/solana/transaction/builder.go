// internal/blockchain/solana/transaction/builder.go
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/programs/computebudget"
)

// MaxTransactionSize – лимит сериализованной транзакции (IPv6 MTU минус заголовки)
const MaxTransactionSize = 1232

var (
	ErrNoSigners           = errors.New("no signers provided")
	ErrNoInstructions      = errors.New("no instructions provided")
	ErrTransactionTooLarge = errors.New("transaction exceeds size limit")
)

// BlockhashSource определяет источник blockhash
type BlockhashSource interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
}

// Builder помогает конструировать транзакции
type Builder struct {
	instructions []solana.Instruction
	signers      []solana.PrivateKey
	budget       computebudget.Config
}

// NewTransactionBuilder создает новый билдер транзакций
func NewTransactionBuilder() *Builder {
	return &Builder{}
}

// SetComputeBudget устанавливает параметры compute budget
func (b *Builder) SetComputeBudget(cfg computebudget.Config) *Builder {
	b.budget = cfg
	return b
}

// AddInstruction добавляет инструкцию в транзакцию
func (b *Builder) AddInstruction(instructions ...solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instructions...)
	return b
}

// AddSigner добавляет подписанта транзакции. Первый подписант платит комиссию.
func (b *Builder) AddSigner(signers ...solana.PrivateKey) *Builder {
	b.signers = append(b.signers, signers...)
	return b
}

// Build создает и подписывает транзакцию
func (b *Builder) Build(ctx context.Context, source BlockhashSource) (*solana.Transaction, error) {
	if len(b.signers) == 0 {
		return nil, ErrNoSigners
	}
	if len(b.instructions) == 0 {
		return nil, ErrNoInstructions
	}

	blockhash, err := source.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	budgetInstructions, err := computebudget.BuildInstructions(b.budget)
	if err != nil {
		return nil, fmt.Errorf("failed to build compute budget instructions: %w", err)
	}

	instructions := make([]solana.Instruction, 0, len(budgetInstructions)+len(b.instructions))
	instructions = append(instructions, budgetInstructions...)
	instructions = append(instructions, b.instructions...)

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(b.signers[0].PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, signer := range b.signers {
			if signer.PublicKey().Equals(key) {
				privateCopy := signer
				return &privateCopy
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	if len(raw) > MaxTransactionSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTransactionTooLarge, len(raw), MaxTransactionSize)
	}

	return tx, nil
}
