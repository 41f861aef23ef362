package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain"
	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// fakeChain исполняет инструкции vault'а над минимальным состоянием одной позиции.
// Транзакция применяется целиком или не применяется вовсе.
type fakeChain struct {
	mu        sync.Mutex
	feesOwed  uint64
	liquidity uint64
	closed    bool
	sent      int
}

type chainState struct {
	feesOwed  uint64
	liquidity uint64
	closed    bool
}

func customFailure(index int, program solana.PublicKey, code uint32, logs []string) (interface{}, []string) {
	logs = append(logs, fmt.Sprintf("Program %s failed: custom program error: 0x%x", program, code))
	return map[string]interface{}{
		"InstructionError": []interface{}{float64(index), map[string]interface{}{"Custom": float64(code)}},
	}, logs
}

func (c *fakeChain) run(tx *solana.Transaction) (chainState, interface{}, []string) {
	state := chainState{feesOwed: c.feesOwed, liquidity: c.liquidity, closed: c.closed}
	var logs []string

	for i, ix := range tx.Message.Instructions {
		program := tx.Message.AccountKeys[ix.ProgramIDIndex]
		if !program.Equals(ProgramID) {
			continue
		}
		logs = append(logs, fmt.Sprintf("Program %s invoke [1]", ProgramID))

		var d [8]byte
		copy(d[:], ix.Data)
		switch d {
		case collectFeesDiscriminator:
			if state.feesOwed == 0 {
				logs = append(logs, "Program log: AnchorError occurred. Error Code: NotEnoughFees. Error Number: 6010. Error Message: Not enough fees.")
				errValue, logs := customFailure(i, ProgramID, 6010, logs)
				return state, errValue, logs
			}
			state.feesOwed = 0
		case withdrawDiscriminator:
			state.liquidity = 0
		case closePositionDiscriminator:
			logs = append(logs, fmt.Sprintf("Program %s invoke [2]", whirlpool.ProgramID))
			if state.liquidity > 0 {
				logs = append(logs, fmt.Sprintf("Program %s failed: custom program error: 0x1775", whirlpool.ProgramID))
				errValue, logs := customFailure(i, ProgramID, 6005, logs)
				return state, errValue, logs
			}
			state.closed = true
		}
		logs = append(logs, fmt.Sprintf("Program %s success", ProgramID))
	}
	return state, nil, logs
}

func (c *fakeChain) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{7}, nil
}

func (c *fakeChain) SimulateTransaction(_ context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, errValue, logs := c.run(tx)
	return &blockchain.SimulationResult{Err: errValue, Logs: logs, UnitsConsumed: 5000}, nil
}

func (c *fakeChain) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ blockchain.TransactionOptions) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, errValue, logs := c.run(tx)
	if errValue != nil {
		rawLogs := make([]interface{}, len(logs))
		for i, l := range logs {
			rawLogs[i] = l
		}
		return solana.Signature{}, &jsonrpc.RPCError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 0: custom program error",
			Data:    map[string]interface{}{"err": errValue, "logs": rawLogs},
		}
	}
	c.feesOwed, c.liquidity, c.closed = state.feesOwed, state.liquidity, state.closed
	c.sent++
	return tx.Signatures[0], nil
}

func (c *fakeChain) WaitForTransactionConfirmation(context.Context, solana.Signature, solanarpc.CommitmentType) error {
	return nil
}

type executorEnv struct {
	*testEnv
	wallet   *solana.Wallet
	chain    *fakeChain
	asm      *Assembler
	executor *Executor
	position *PositionRecord
}

func newExecutorEnv(t *testing.T) *executorEnv {
	t.Helper()
	env := newTestEnv(t, 0)
	wallet := solana.NewWallet()
	env.user = wallet.PublicKey()

	e := &executorEnv{
		testEnv: env,
		wallet:  wallet,
		chain:   &fakeChain{},
	}
	e.asm = env.assembler(t, nil)
	e.executor = NewExecutor(e.chain, nil, "", zap.NewNop())
	e.position = openTestPosition(t, env, e.asm).Position
	return e
}

func (e *executorEnv) operation(name string, ixs ...solana.Instruction) Operation {
	return Operation{Name: name, Instructions: ixs, Signers: []solana.PrivateKey{e.wallet.PrivateKey}}
}

func TestCollectFeesBelowThreshold(t *testing.T) {
	e := newExecutorEnv(t)
	ctx := context.Background()

	ix, err := e.asm.CollectFees(ctx, e.id(), e.position, e.user)
	require.NoError(t, err)

	_, err = e.executor.Simulate(ctx, e.operation("collect_fees", ix))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotEnoughFees)

	var pe *ProgramError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindNotEnoughFees, pe.Kind)
	assert.Equal(t, uint32(6010), pe.Code)
	assert.Equal(t, "NotEnoughFees", pe.Name)
	assert.Equal(t, ProgramID, pe.ProgramID)
	assert.True(t, pe.Retryable())

	_, err = e.executor.Execute(ctx, e.operation("collect_fees", ix))
	assert.ErrorIs(t, err, ErrNotEnoughFees)

	e.chain.feesOwed = 42
	res, err := e.executor.Simulate(ctx, e.operation("collect_fees", ix))
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), res.UnitsConsumed)
}

func TestClosePositionInUseUntilWithdraw(t *testing.T) {
	e := newExecutorEnv(t)
	ctx := context.Background()
	e.chain.liquidity = 1_000

	closeIx, err := e.asm.ClosePosition(ctx, e.id(), e.position, e.user)
	require.NoError(t, err)

	_, err = e.executor.Execute(ctx, e.operation("close_position", closeIx))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPositionInUse)

	var pe *ProgramError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, whirlpool.ProgramID, pe.ProgramID)
	assert.Equal(t, uint32(6005), pe.Code)
	assert.Equal(t, "ClosePositionNotEmpty", pe.Name)
	assert.False(t, pe.Retryable())
	assert.False(t, e.chain.closed)

	withdrawIx, err := e.asm.Withdraw(ctx, LiquidityParams{
		Vault: e.id(), Position: e.position, LpAmount: 1_000, UserSigner: e.user,
	})
	require.NoError(t, err)
	_, err = e.executor.Execute(ctx, e.operation("withdraw", withdrawIx))
	require.NoError(t, err)
	assert.Zero(t, e.chain.liquidity)

	_, err = e.executor.Execute(ctx, e.operation("close_position", closeIx))
	require.NoError(t, err)
	assert.True(t, e.chain.closed)
	assert.Equal(t, 2, e.chain.sent)
}

func TestExecutorRefusesToSplitOperation(t *testing.T) {
	e := newExecutorEnv(t)
	ctx := context.Background()

	var ixs []solana.Instruction
	for i := 0; i < 40; i++ {
		ix, err := e.asm.SetVaultFee(ctx, VaultIdentity{Pool: e.pool, Index: uint8(i)}, 1, e.user)
		require.NoError(t, err)
		ixs = append(ixs, ix)
	}

	_, err := e.executor.Simulate(ctx, e.operation("set_vault_fee_batch", ixs...))
	assert.ErrorIs(t, err, ErrTransactionTooLarge)
	assert.Zero(t, e.chain.sent)
}
