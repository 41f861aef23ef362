// internal/vault/pda.go
package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
)

// Derive finds the program address for seeds, searching bumps from 255 down. The same
// program and seeds always give the same address and bump.
func Derive(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, uint8, error) {
	if len(seeds) >= maxSeeds {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d seeds, at most %d allowed", ErrInvalidSeed, len(seeds), maxSeeds-1)
	}
	for i, s := range seeds {
		if len(s) > maxSeedLength {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: seed %d is %d bytes", ErrInvalidSeed, i, len(s))
		}
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		address, err := solana.CreateProgramAddress(withBump, programID)
		if err == nil {
			return address, uint8(bump), nil
		}
	}
	return solana.PublicKey{}, 0, fmt.Errorf("%w: program %s", ErrExhaustedSeedSpace, programID)
}

// DeriveVaultAddress – ["vault", index, pool]. Mints не входят в seeds: у одной пары
// может быть несколько пулов с разным tick spacing.
func DeriveVaultAddress(programID, pool solana.PublicKey, index uint8) (solana.PublicKey, uint8, error) {
	return Derive(programID, []byte(VaultAccountSeed), []byte{index}, pool.Bytes())
}

// DeriveLpMintAddress – ["mint", vault]
func DeriveLpMintAddress(programID, vault solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(programID, []byte(VaultLpTokenMintSeed), vault.Bytes())
}

// DeriveTokenAccount returns the associated token account of owner for mint. Owner may be
// a program address.
func DeriveTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account of %s for mint %s: %w", owner, mint, err)
	}
	return address, nil
}

// DeriveVaultKeys computes the full address set of a vault. The mints only locate the
// vault's input token accounts.
func DeriveVaultKeys(cfg *Config, id VaultIdentity, mintA, mintB solana.PublicKey) (*VaultKeys, error) {
	vault, vaultBump, err := DeriveVaultAddress(cfg.ProgramID, id.Pool, id.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault account: %w", err)
	}
	lpMint, lpBump, err := DeriveLpMintAddress(cfg.ProgramID, vault)
	if err != nil {
		return nil, fmt.Errorf("failed to derive lp mint: %w", err)
	}
	inputA, err := DeriveTokenAccount(vault, mintA)
	if err != nil {
		return nil, err
	}
	inputB, err := DeriveTokenAccount(vault, mintB)
	if err != nil {
		return nil, err
	}
	treasury, err := DeriveTokenAccount(cfg.TreasuryOwner, lpMint)
	if err != nil {
		return nil, err
	}

	return &VaultKeys{
		Identity:         id,
		MintA:            mintA,
		MintB:            mintB,
		VaultAccount:     vault,
		VaultBump:        vaultBump,
		LpMint:           lpMint,
		LpMintBump:       lpBump,
		VaultInputTokenA: inputA,
		VaultInputTokenB: inputB,
		TreasuryLpToken:  treasury,
	}, nil
}

// RewardTokenAccount – аккаунт vault'а для награды слота
func (k *VaultKeys) RewardTokenAccount(rewardMint solana.PublicKey) (solana.PublicKey, error) {
	return DeriveTokenAccount(k.VaultAccount, rewardMint)
}

// InputTokenAccount returns the vault's input account for mint, if mint is one of the
// vault's tokens.
func (k *VaultKeys) InputTokenAccount(mint solana.PublicKey) (solana.PublicKey, bool) {
	switch {
	case mint.Equals(k.MintA):
		return k.VaultInputTokenA, true
	case mint.Equals(k.MintB):
		return k.VaultInputTokenB, true
	}
	return solana.PublicKey{}, false
}
