// internal/vault/executor.go
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/programs/computebudget"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/transaction"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc"
)

// Submitter – сторона, принимающая транзакции (реализует solbc.Client)
type Submitter interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment solanarpc.CommitmentType) error
}

// Operation – одна операция vault'а. Отправляется одной транзакцией и никогда не делится.
type Operation struct {
	Name         string
	Instructions []solana.Instruction
	// Signers: первый подписант платит комиссию
	Signers       []solana.PrivateKey
	Budget        computebudget.Config
	SkipPreflight bool
}

// Executor simulates and sends operations and turns program rejections into *ProgramError.
type Executor struct {
	submitter  Submitter
	cfg        *Config
	analyzer   *solbc.ErrorAnalyzer
	commitment solanarpc.CommitmentType
	logger     *zap.Logger
}

// NewExecutor создает исполнителя операций
func NewExecutor(submitter Submitter, cfg *Config, commitment solanarpc.CommitmentType, logger *zap.Logger) *Executor {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if commitment == "" {
		commitment = solanarpc.CommitmentConfirmed
	}
	return &Executor{
		submitter:  submitter,
		cfg:        cfg,
		analyzer:   solbc.NewErrorAnalyzer(logger),
		commitment: commitment,
		logger:     logger.Named("vault-executor"),
	}
}

func (e *Executor) build(ctx context.Context, op Operation) (*solana.Transaction, error) {
	tx, err := transaction.NewTransactionBuilder().
		SetComputeBudget(op.Budget).
		AddInstruction(op.Instructions...).
		AddSigner(op.Signers...).
		Build(ctx, e.submitter)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", op.Name, err)
	}
	return tx, nil
}

// Simulate runs the operation against the ledger without committing it.
func (e *Executor) Simulate(ctx context.Context, op Operation) (*blockchain.SimulationResult, error) {
	tx, err := e.build(ctx, op)
	if err != nil {
		return nil, err
	}

	res, err := e.submitter.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("operation %s: simulation request failed: %w", op.Name, err)
	}
	if failure := e.analyzer.AnalyzeSimulation(res.Err, res.Logs); failure != nil {
		pe := newProgramError(failure, e.cfg.ProgramID, instructionProgram(tx, failure.Instruction))
		e.logRejection(op, pe)
		return res, pe
	}

	e.logger.Debug("Simulation succeeded",
		zap.String("operation", op.Name),
		zap.Uint64("units_consumed", res.UnitsConsumed))
	return res, nil
}

// Execute sends the operation and waits for confirmation.
func (e *Executor) Execute(ctx context.Context, op Operation) (solana.Signature, error) {
	tx, err := e.build(ctx, op)
	if err != nil {
		return solana.Signature{}, err
	}

	start := time.Now()
	sig, err := e.submitter.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       op.SkipPreflight,
		PreflightCommitment: e.commitment,
	})
	if err != nil {
		if failure := e.analyzer.AnalyzeRPCError(err); failure != nil {
			pe := newProgramError(failure, e.cfg.ProgramID, instructionProgram(tx, failure.Instruction))
			e.logRejection(op, pe)
			return solana.Signature{}, pe
		}
		return solana.Signature{}, fmt.Errorf("operation %s: send failed: %w", op.Name, err)
	}

	if err := e.submitter.WaitForTransactionConfirmation(ctx, sig, e.commitment); err != nil {
		return sig, fmt.Errorf("operation %s: %w", op.Name, err)
	}

	e.logger.Info("Operation confirmed",
		zap.String("operation", op.Name),
		zap.String("signature", sig.String()),
		zap.Duration("elapsed", time.Since(start)))
	return sig, nil
}

func (e *Executor) logRejection(op Operation, pe *ProgramError) {
	fields := []zap.Field{
		zap.String("operation", op.Name),
		zap.String("program", pe.ProgramID.String()),
		zap.Int("instruction", pe.Instruction),
		zap.Uint32("code", pe.Code),
		zap.String("name", pe.Name),
		zap.String("kind", pe.Kind.String()),
	}
	if pe.Retryable() {
		e.logger.Info("Operation rejected, retry later", fields...)
		return
	}
	e.logger.Warn("Operation rejected", fields...)
}

// instructionProgram returns the top-level program of instruction idx in tx.
func instructionProgram(tx *solana.Transaction, idx int) solana.PublicKey {
	if idx < 0 || idx >= len(tx.Message.Instructions) {
		return solana.PublicKey{}
	}
	programIndex := int(tx.Message.Instructions[idx].ProgramIDIndex)
	if programIndex >= len(tx.Message.AccountKeys) {
		return solana.PublicKey{}
	}
	return tx.Message.AccountKeys[programIndex]
}
