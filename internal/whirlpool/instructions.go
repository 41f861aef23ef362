// internal/whirlpool/instructions.go
package whirlpool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// NewInitializeTickArrayInstruction builds initialize_tick_array for one start index.
func NewInitializeTickArrayInstruction(pool, funder, tickArray solana.PublicKey, startTickIndex int32) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(InitializeTickArrayDiscriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.Encode(startTickIndex); err != nil {
		return nil, fmt.Errorf("failed to encode start tick index: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(pool, false, false),
		solana.NewAccountMeta(funder, true, true),
		solana.NewAccountMeta(tickArray, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(ProgramID, accounts, buf.Bytes()), nil
}

// SwapAccounts – аккаунты пула, которые swap-инструкция Whirlpool читает после
// аккаунтов вызывающей программы.
type SwapAccounts struct {
	Whirlpool   solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
	TickArrays  [3]solana.PublicKey
	Oracle      solana.PublicKey
}

// NewSwapAccounts resolves swap accounts for a pool at its current tick.
func NewSwapAccounts(address, tokenVaultA, tokenVaultB solana.PublicKey, currentTick int32, tickSpacing uint16, aToB bool) (*SwapAccounts, error) {
	tickArrays, err := TickArrayAddressesForSwap(address, currentTick, tickSpacing, aToB)
	if err != nil {
		return nil, fmt.Errorf("failed to derive swap tick arrays: %w", err)
	}
	oracle, err := OracleAddress(address)
	if err != nil {
		return nil, err
	}
	return &SwapAccounts{
		Whirlpool:   address,
		TokenVaultA: tokenVaultA,
		TokenVaultB: tokenVaultB,
		TickArrays:  tickArrays,
		Oracle:      oracle,
	}, nil
}

// Metas returns the accounts in the order the swap instruction expects.
func (s *SwapAccounts) Metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(s.Whirlpool, true, false),
		solana.NewAccountMeta(s.TokenVaultA, true, false),
		solana.NewAccountMeta(s.TokenVaultB, true, false),
		solana.NewAccountMeta(s.TickArrays[0], true, false),
		solana.NewAccountMeta(s.TickArrays[1], true, false),
		solana.NewAccountMeta(s.TickArrays[2], true, false),
		solana.NewAccountMeta(s.Oracle, true, false),
	}
}
