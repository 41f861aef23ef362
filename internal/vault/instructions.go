// internal/vault/instructions.go
package vault

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// marketRewardsArg – маршрут награды в аргументах initialize_vault
type marketRewardsArg struct {
	Kind         uint8
	MinAmountOut uint64
	Destination  solana.PublicKey
}

// newInstruction validates the account set and Borsh-encodes discriminator plus args.
func newInstruction(programID solana.PublicKey, discriminator [8]byte, accounts accountSet, args ...interface{}) (solana.Instruction, error) {
	if err := accounts.validate(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(discriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	for i, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return nil, fmt.Errorf("failed to encode argument %d: %w", i, err)
		}
	}
	return solana.NewInstruction(programID, accounts.metas(), buf.Bytes()), nil
}

func newInitializeVaultInstruction(programID solana.PublicKey, a initializeVaultAccounts, vaultIndex uint8, fee uint64, routes []marketRewardsArg) (solana.Instruction, error) {
	if routes == nil {
		routes = []marketRewardsArg{}
	}
	return newInstruction(programID, initializeVaultDiscriminator, a, vaultIndex, fee, routes)
}

func newInitializeLpMintInstruction(programID solana.PublicKey, a initializeLpMintAccounts) (solana.Instruction, error) {
	return newInstruction(programID, initializeVaultLpMintDiscriminator, a)
}

func newOpenPositionInstruction(programID solana.PublicKey, a openPositionAccounts, bump uint8, tickLower, tickUpper int32) (solana.Instruction, error) {
	return newInstruction(programID, openPositionDiscriminator, a, bump, tickLower, tickUpper)
}

func newClosePositionInstruction(programID solana.PublicKey, a closePositionAccounts) (solana.Instruction, error) {
	return newInstruction(programID, closePositionDiscriminator, a)
}

func newDepositInstruction(programID solana.PublicKey, a depositWithdrawAccounts, lpAmount, maxAmountA, maxAmountB uint64) (solana.Instruction, error) {
	return newInstruction(programID, depositDiscriminator, a, lpAmount, maxAmountA, maxAmountB)
}

func newWithdrawInstruction(programID solana.PublicKey, a depositWithdrawAccounts, lpAmount, minAmountA, minAmountB uint64) (solana.Instruction, error) {
	return newInstruction(programID, withdrawDiscriminator, a, lpAmount, minAmountA, minAmountB)
}

func newRebalanceInstruction(programID solana.PublicKey, a rebalanceAccounts) (solana.Instruction, error) {
	return newInstruction(programID, rebalanceDiscriminator, a)
}

func newReinvestInstruction(programID solana.PublicKey, a reinvestAccounts) (solana.Instruction, error) {
	return newInstruction(programID, reinvestDiscriminator, a)
}

func newCollectFeesInstruction(programID solana.PublicKey, a collectFeesAccounts) (solana.Instruction, error) {
	return newInstruction(programID, collectFeesDiscriminator, a)
}

func newCollectRewardsInstruction(programID solana.PublicKey, a collectRewardsAccounts, rewardIndex uint8) (solana.Instruction, error) {
	return newInstruction(programID, collectRewardsDiscriminator, a, rewardIndex)
}

// swap_rewards без аргументов: минимальный выход программа берет из market rewards
func newSwapRewardsInstruction(programID solana.PublicKey, a swapRewardsAccounts) (solana.Instruction, error) {
	return newInstruction(programID, swapRewardsDiscriminator, a)
}

func newTransferRewardsInstruction(programID solana.PublicKey, a transferRewardsAccounts) (solana.Instruction, error) {
	return newInstruction(programID, transferRewardsDiscriminator, a)
}

func newSetMarketRewardsInstruction(programID solana.PublicKey, a setMarketRewardsAccounts, kind RouteKind, minAmountOut uint64) (solana.Instruction, error) {
	return newInstruction(programID, setMarketRewardsDiscriminator, a, uint8(kind), minAmountOut)
}

func newSetVaultFeeInstruction(programID solana.PublicKey, a vaultAdminAccounts, fee uint64) (solana.Instruction, error) {
	return newInstruction(programID, setVaultFeeDiscriminator, a, fee)
}

func newSetVaultPauseStatusInstruction(programID solana.PublicKey, a vaultAdminAccounts, paused bool) (solana.Instruction, error) {
	return newInstruction(programID, setVaultPauseStatusDiscriminator, a, paused)
}

func newSetMinSlotsForReinvestInstruction(programID solana.PublicKey, a vaultAdminAccounts, slots uint64) (solana.Instruction, error) {
	return newInstruction(programID, setMinSlotsForReinvestDiscriminator, a, slots)
}
