// internal/vault/accounts.go
package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// accountSet – типизированный набор аккаунтов инструкции
type accountSet interface {
	validate() error
	metas() solana.AccountMetaSlice
}

type namedKey struct {
	name string
	key  solana.PublicKey
}

func requireKeys(set string, keys ...namedKey) error {
	for _, k := range keys {
		if k.key.IsZero() {
			return fmt.Errorf("%w: %s.%s", ErrMissingAccount, set, k.name)
		}
	}
	return nil
}

func readonly(key solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(key, false, false)
}

func writable(key solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(key, true, false)
}

func signer(key solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(key, false, true)
}

func payer(key solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(key, true, true)
}

// PositionAccounts – аккаунты Whirlpool одной позиции
type PositionAccounts struct {
	Whirlpool            solana.PublicKey
	Position             solana.PublicKey
	PositionTokenAccount solana.PublicKey
	TickArrayLower       solana.PublicKey
	TickArrayUpper       solana.PublicKey
}

// NewPositionAccounts builds the account set of a position on pool.
func NewPositionAccounts(pool solana.PublicKey, p *PositionRecord) (PositionAccounts, error) {
	a := PositionAccounts{
		Whirlpool:            pool,
		Position:             p.Address,
		PositionTokenAccount: p.TokenAccount,
		TickArrayLower:       p.TickArrayLower,
		TickArrayUpper:       p.TickArrayUpper,
	}
	return a, a.validate()
}

func (a PositionAccounts) validate() error {
	return requireKeys("position",
		namedKey{"whirlpool", a.Whirlpool},
		namedKey{"position", a.Position},
		namedKey{"position_token_account", a.PositionTokenAccount},
		namedKey{"tick_array_lower", a.TickArrayLower},
		namedKey{"tick_array_upper", a.TickArrayUpper},
	)
}

func (a PositionAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		writable(a.Whirlpool),
		writable(a.Position),
		writable(a.PositionTokenAccount),
		writable(a.TickArrayLower),
		writable(a.TickArrayUpper),
	}
}

type initializeVaultAccounts struct {
	UserSigner      solana.PublicKey
	Whirlpool       solana.PublicKey
	MintA           solana.PublicKey
	MintB           solana.PublicKey
	Vault           solana.PublicKey
	TreasuryLpToken solana.PublicKey
}

func (a initializeVaultAccounts) validate() error {
	return requireKeys("initialize_vault",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"whirlpool", a.Whirlpool},
		namedKey{"token_mint_a", a.MintA},
		namedKey{"token_mint_b", a.MintB},
		namedKey{"vault_account", a.Vault},
		namedKey{"dao_treasury_lp_token_account", a.TreasuryLpToken},
	)
}

func (a initializeVaultAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		payer(a.UserSigner),
		readonly(a.Whirlpool),
		readonly(a.MintA),
		readonly(a.MintB),
		writable(a.Vault),
		readonly(a.TreasuryLpToken),
		readonly(solana.SystemProgramID),
		readonly(solana.SysVarRentPubkey),
	}
}

type initializeLpMintAccounts struct {
	UserSigner solana.PublicKey
	Vault      solana.PublicKey
	LpMint     solana.PublicKey
	MintA      solana.PublicKey
}

func (a initializeLpMintAccounts) validate() error {
	return requireKeys("initialize_vault_lp_mint",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_lp_token_mint", a.LpMint},
		namedKey{"token_mint_a", a.MintA},
	)
}

func (a initializeLpMintAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		payer(a.UserSigner),
		writable(a.Vault),
		writable(a.LpMint),
		readonly(a.MintA),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
		readonly(solana.SysVarRentPubkey),
	}
}

type openPositionAccounts struct {
	UserSigner           solana.PublicKey
	Vault                solana.PublicKey
	Position             solana.PublicKey
	PositionMint         solana.PublicKey
	PositionTokenAccount solana.PublicKey
	Whirlpool            solana.PublicKey
}

func (a openPositionAccounts) validate() error {
	return requireKeys("open_position",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"position", a.Position},
		namedKey{"position_mint", a.PositionMint},
		namedKey{"position_token_account", a.PositionTokenAccount},
		namedKey{"whirlpool", a.Whirlpool},
	)
}

func (a openPositionAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		payer(a.UserSigner),
		writable(a.Vault),
		readonly(whirlpool.ProgramID),
		writable(a.Position),
		payer(a.PositionMint),
		writable(a.PositionTokenAccount),
		readonly(a.Whirlpool),
		readonly(solana.TokenProgramID),
		readonly(solana.SystemProgramID),
		readonly(solana.SysVarRentPubkey),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
	}
}

type closePositionAccounts struct {
	UserSigner           solana.PublicKey
	Vault                solana.PublicKey
	Position             solana.PublicKey
	PositionMint         solana.PublicKey
	PositionTokenAccount solana.PublicKey
}

func (a closePositionAccounts) validate() error {
	return requireKeys("close_position",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"position", a.Position},
		namedKey{"position_mint", a.PositionMint},
		namedKey{"position_token_account", a.PositionTokenAccount},
	)
}

func (a closePositionAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		payer(a.UserSigner),
		writable(a.Vault),
		readonly(whirlpool.ProgramID),
		writable(a.Position),
		writable(a.PositionMint),
		writable(a.PositionTokenAccount),
		readonly(solana.TokenProgramID),
	}
}

// depositWithdrawAccounts – общий набор deposit и withdraw
type depositWithdrawAccounts struct {
	UserSigner  solana.PublicKey
	Vault       solana.PublicKey
	LpMint      solana.PublicKey
	VaultInputA solana.PublicKey
	VaultInputB solana.PublicKey
	UserLp      solana.PublicKey
	UserA       solana.PublicKey
	UserB       solana.PublicKey
	Position    PositionAccounts
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
}

func (a depositWithdrawAccounts) validate() error {
	if err := requireKeys("deposit_withdraw",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_lp_token_mint", a.LpMint},
		namedKey{"vault_input_token_a_account", a.VaultInputA},
		namedKey{"vault_input_token_b_account", a.VaultInputB},
		namedKey{"user_lp_token_account", a.UserLp},
		namedKey{"user_token_a_account", a.UserA},
		namedKey{"user_token_b_account", a.UserB},
		namedKey{"whirlpool_token_vault_a", a.TokenVaultA},
		namedKey{"whirlpool_token_vault_b", a.TokenVaultB},
	); err != nil {
		return err
	}
	return a.Position.validate()
}

func (a depositWithdrawAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		writable(a.LpMint),
		writable(a.VaultInputA),
		writable(a.VaultInputB),
		writable(a.UserLp),
		writable(a.UserA),
		writable(a.UserB),
		readonly(whirlpool.ProgramID),
	}
	out = append(out, a.Position.metas()...)
	return append(out,
		writable(a.TokenVaultA),
		writable(a.TokenVaultB),
		readonly(solana.TokenProgramID),
	)
}

type rebalanceAccounts struct {
	UserSigner  solana.PublicKey
	Vault       solana.PublicKey
	VaultInputA solana.PublicKey
	VaultInputB solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
	Current     PositionAccounts
	New         PositionAccounts
}

func (a rebalanceAccounts) validate() error {
	if err := requireKeys("rebalance",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_input_token_a_account", a.VaultInputA},
		namedKey{"vault_input_token_b_account", a.VaultInputB},
		namedKey{"token_vault_a", a.TokenVaultA},
		namedKey{"token_vault_b", a.TokenVaultB},
	); err != nil {
		return err
	}
	if a.Current.Position.Equals(a.New.Position) {
		return fmt.Errorf("%w: rebalance source and target are the same position %s", ErrInvalidRange, a.Current.Position)
	}
	if err := a.Current.validate(); err != nil {
		return err
	}
	return a.New.validate()
}

func (a rebalanceAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		writable(a.VaultInputA),
		writable(a.VaultInputB),
		readonly(whirlpool.ProgramID),
		writable(a.TokenVaultA),
		writable(a.TokenVaultB),
	}
	out = append(out, a.Current.metas()...)
	out = append(out, a.New.metas()...)
	return append(out,
		readonly(solana.TokenProgramID),
		readonly(solana.SysVarInstructionsPubkey),
	)
}

type reinvestAccounts struct {
	Vault       solana.PublicKey
	LpMint      solana.PublicKey
	VaultInputA solana.PublicKey
	VaultInputB solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
	Position    PositionAccounts
	TickArrays  [3]solana.PublicKey
	Oracle      solana.PublicKey
}

func (a reinvestAccounts) validate() error {
	if err := requireKeys("reinvest",
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_lp_token_mint", a.LpMint},
		namedKey{"vault_input_token_a_account", a.VaultInputA},
		namedKey{"vault_input_token_b_account", a.VaultInputB},
		namedKey{"token_vault_a", a.TokenVaultA},
		namedKey{"token_vault_b", a.TokenVaultB},
		namedKey{"tick_array_0", a.TickArrays[0]},
		namedKey{"tick_array_1", a.TickArrays[1]},
		namedKey{"tick_array_2", a.TickArrays[2]},
		namedKey{"oracle", a.Oracle},
	); err != nil {
		return err
	}
	return a.Position.validate()
}

func (a reinvestAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		writable(a.Vault),
		readonly(a.LpMint),
		readonly(whirlpool.ProgramID),
		writable(a.VaultInputA),
		writable(a.VaultInputB),
		writable(a.TokenVaultA),
		writable(a.TokenVaultB),
	}
	out = append(out, a.Position.metas()...)
	return append(out,
		writable(a.TickArrays[0]),
		writable(a.TickArrays[1]),
		writable(a.TickArrays[2]),
		writable(a.Oracle),
		readonly(solana.TokenProgramID),
	)
}

type collectFeesAccounts struct {
	UserSigner  solana.PublicKey
	Vault       solana.PublicKey
	VaultInputA solana.PublicKey
	VaultInputB solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
	Position    PositionAccounts
}

func (a collectFeesAccounts) validate() error {
	if err := requireKeys("collect_fees",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_input_token_a_account", a.VaultInputA},
		namedKey{"vault_input_token_b_account", a.VaultInputB},
		namedKey{"token_vault_a", a.TokenVaultA},
		namedKey{"token_vault_b", a.TokenVaultB},
	); err != nil {
		return err
	}
	return a.Position.validate()
}

func (a collectFeesAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		readonly(whirlpool.ProgramID),
		writable(a.VaultInputA),
		writable(a.VaultInputB),
		writable(a.TokenVaultA),
		writable(a.TokenVaultB),
	}
	out = append(out, a.Position.metas()...)
	return append(out, readonly(solana.TokenProgramID))
}

type collectRewardsAccounts struct {
	UserSigner        solana.PublicKey
	Vault             solana.PublicKey
	VaultRewardsToken solana.PublicKey
	RewardVault       solana.PublicKey
	Position          PositionAccounts
}

func (a collectRewardsAccounts) validate() error {
	if err := requireKeys("collect_rewards",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_rewards_token_account", a.VaultRewardsToken},
		namedKey{"reward_vault", a.RewardVault},
	); err != nil {
		return err
	}
	return a.Position.validate()
}

func (a collectRewardsAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		writable(a.VaultRewardsToken),
		writable(a.RewardVault),
		readonly(whirlpool.ProgramID),
	}
	out = append(out, a.Position.metas()...)
	return append(out, readonly(solana.TokenProgramID))
}

type swapRewardsAccounts struct {
	UserSigner            solana.PublicKey
	Vault                 solana.PublicKey
	VaultRewardsToken     solana.PublicKey
	VaultDestinationToken solana.PublicKey
	Swap                  *whirlpool.SwapAccounts
}

func (a swapRewardsAccounts) validate() error {
	if a.Swap == nil {
		return fmt.Errorf("%w: swap_rewards.swap_accounts", ErrMissingAccount)
	}
	return requireKeys("swap_rewards",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_rewards_token_account", a.VaultRewardsToken},
		namedKey{"vault_destination_token_account", a.VaultDestinationToken},
		namedKey{"whirlpool", a.Swap.Whirlpool},
		namedKey{"oracle", a.Swap.Oracle},
	)
}

func (a swapRewardsAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		writable(a.VaultRewardsToken),
		writable(a.VaultDestinationToken),
		readonly(solana.TokenProgramID),
		readonly(whirlpool.ProgramID),
	}
	return append(out, a.Swap.Metas()...)
}

type transferRewardsAccounts struct {
	Vault             solana.PublicKey
	VaultRewardsToken solana.PublicKey
	Destination       solana.PublicKey
}

func (a transferRewardsAccounts) validate() error {
	return requireKeys("transfer_rewards",
		namedKey{"vault_account", a.Vault},
		namedKey{"vault_rewards_token_account", a.VaultRewardsToken},
		namedKey{"destination_token_account", a.Destination},
	)
}

func (a transferRewardsAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		writable(a.Vault),
		writable(a.VaultRewardsToken),
		writable(a.Destination),
		readonly(solana.TokenProgramID),
	}
}

type setMarketRewardsAccounts struct {
	UserSigner  solana.PublicKey
	Vault       solana.PublicKey
	Whirlpool   solana.PublicKey
	RewardsMint solana.PublicKey
	Destination solana.PublicKey
	// MarketPool задается только для маршрута через AMM
	MarketPool solana.PublicKey
}

func (a setMarketRewardsAccounts) validate() error {
	return requireKeys("set_market_rewards",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
		namedKey{"whirlpool", a.Whirlpool},
		namedKey{"rewards_mint", a.RewardsMint},
		namedKey{"destination_token_account", a.Destination},
	)
}

func (a setMarketRewardsAccounts) metas() solana.AccountMetaSlice {
	out := solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
		readonly(a.Whirlpool),
		readonly(a.RewardsMint),
		readonly(a.Destination),
	}
	if !a.MarketPool.IsZero() {
		out = append(out, readonly(a.MarketPool))
	}
	return out
}

// vaultAdminAccounts – изменение параметров vault'а
type vaultAdminAccounts struct {
	UserSigner solana.PublicKey
	Vault      solana.PublicKey
}

func (a vaultAdminAccounts) validate() error {
	return requireKeys("vault_admin",
		namedKey{"user_signer", a.UserSigner},
		namedKey{"vault_account", a.Vault},
	)
}

func (a vaultAdminAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		signer(a.UserSigner),
		writable(a.Vault),
	}
}
