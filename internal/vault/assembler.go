// internal/vault/assembler.go
package vault

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/programs/computebudget"
	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// Assembler собирает упорядоченные наборы инструкций для операций vault'а.
// Каждый экземпляр владеет собственным кэшем и таблицей маршрутов.
type Assembler struct {
	cfg     *Config
	fetcher AccountFetcher
	cache   *Cache
	router  *Router
	logger  *zap.Logger
}

// NewAssembler создает сборщик операций
func NewAssembler(fetcher AccountFetcher, cfg *Config, logger *zap.Logger) (*Assembler, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cache := NewCache(fetcher, cfg, logger)
	return &Assembler{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   cache,
		router:  NewRouter(cfg, cache, logger),
		logger:  logger.Named("vault-assembler"),
	}, nil
}

// Cache returns the assembler's state cache.
func (a *Assembler) Cache() *Cache { return a.cache }

// Router returns the assembler's reward router.
func (a *Assembler) Router() *Router { return a.router }

// Config returns the assembler configuration.
func (a *Assembler) Config() *Config { return a.cfg }

// InitializeVaultParams – параметры создания vault'а
type InitializeVaultParams struct {
	Pool       solana.PublicKey
	Index      uint8
	UserSigner solana.PublicKey
	Fee        uint64
	Routes     []RewardRouteRecord
}

// InitializeVault creates the vault account, its LP mint, both input token accounts and one
// token account per active reward mint, in that order. Routes are encoded into the
// instruction but not recorded in the Router: the caller seeds them once the transaction
// is confirmed.
func (a *Assembler) InitializeVault(ctx context.Context, p InitializeVaultParams) ([]solana.Instruction, error) {
	if p.Fee > FeeScale {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidFee, p.Fee, FeeScale)
	}
	for _, r := range p.Routes {
		if err := validateRoute(r); err != nil {
			return nil, err
		}
	}

	id := VaultIdentity{Pool: p.Pool, Index: p.Index}
	pool, err := a.cache.PoolSnapshot(ctx, p.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}

	active := pool.ActiveRewards()
	routeArgs := make([]marketRewardsArg, 0, len(active))
	for _, slot := range active {
		arg := marketRewardsArg{Kind: uint8(RouteNotSet)}
		for _, r := range p.Routes {
			if r.RewardIndex == slot.Index {
				arg = marketRewardsArg{Kind: uint8(r.Kind), MinAmountOut: r.MinimumAmountOut, Destination: r.Destination}
			}
		}
		routeArgs = append(routeArgs, arg)
	}
	for _, r := range p.Routes {
		if !pool.RewardInfos[r.RewardIndex].Active() {
			return nil, fmt.Errorf("%w: slot %d of pool %s has no reward mint", ErrInvalidRewardIndex, r.RewardIndex, pool.Address)
		}
	}

	initVault, err := newInitializeVaultInstruction(a.cfg.ProgramID, initializeVaultAccounts{
		UserSigner:      p.UserSigner,
		Whirlpool:       pool.Address,
		MintA:           keys.MintA,
		MintB:           keys.MintB,
		Vault:           keys.VaultAccount,
		TreasuryLpToken: keys.TreasuryLpToken,
	}, p.Index, p.Fee, routeArgs)
	if err != nil {
		return nil, err
	}
	initLpMint, err := newInitializeLpMintInstruction(a.cfg.ProgramID, initializeLpMintAccounts{
		UserSigner: p.UserSigner,
		Vault:      keys.VaultAccount,
		LpMint:     keys.LpMint,
		MintA:      keys.MintA,
	})
	if err != nil {
		return nil, err
	}
	instructions := []solana.Instruction{initVault, initLpMint}

	// аккаунты, принадлежащие vault'у, создаются только после самого vault'а
	owned := []solana.PublicKey{keys.MintA, keys.MintB}
	for _, slot := range active {
		if pool.HasMint(slot.Mint) {
			continue
		}
		owned = append(owned, slot.Mint)
	}
	for _, mint := range owned {
		ix, err := associatedtokenaccount.NewCreateInstruction(p.UserSigner, keys.VaultAccount, mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build token account for mint %s: %w", mint, err)
		}
		instructions = append(instructions, ix)
	}

	a.logger.Info("Vault initialization assembled",
		zap.String("vault", keys.VaultAccount.String()),
		zap.String("identity", id.String()),
		zap.Int("instructions", len(instructions)))
	return instructions, nil
}

// OpenPositionParams – параметры открытия позиции
type OpenPositionParams struct {
	Vault        VaultIdentity
	LowerPrice   decimal.Decimal
	UpperPrice   decimal.Decimal
	PositionMint solana.PublicKey
	UserSigner   solana.PublicKey
}

// OpenPositionResult – инструкции и план новой позиции
type OpenPositionResult struct {
	Position     *PositionRecord
	Instructions []solana.Instruction
}

// OpenPosition plans the position, emits open_position and initializes tick arrays the
// pool has not created yet.
func (a *Assembler) OpenPosition(ctx context.Context, p OpenPositionParams) (*OpenPositionResult, error) {
	if p.PositionMint.IsZero() {
		return nil, fmt.Errorf("%w: position mint", ErrMissingAccount)
	}
	pool, err := a.cache.PoolSnapshot(ctx, p.Vault.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, p.Vault)
	if err != nil {
		return nil, err
	}
	decimalsA, err := a.cache.MintDecimals(ctx, pool.TokenMintA)
	if err != nil {
		return nil, err
	}
	decimalsB, err := a.cache.MintDecimals(ctx, pool.TokenMintB)
	if err != nil {
		return nil, err
	}

	position, err := PlanPosition(keys, pool, p.PositionMint, p.LowerPrice, p.UpperPrice, decimalsA, decimalsB)
	if err != nil {
		return nil, err
	}

	open, err := newOpenPositionInstruction(a.cfg.ProgramID, openPositionAccounts{
		UserSigner:           p.UserSigner,
		Vault:                keys.VaultAccount,
		Position:             position.Address,
		PositionMint:         position.Mint,
		PositionTokenAccount: position.TokenAccount,
		Whirlpool:            pool.Address,
	}, position.Bump, position.TickLowerIndex, position.TickUpperIndex)
	if err != nil {
		return nil, err
	}

	inits, err := a.tickArrayInitInstructions(ctx, pool, position, p.UserSigner)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Position planned",
		zap.String("vault", p.Vault.String()),
		zap.String("position", position.Address.String()),
		zap.Int32("tick_lower", position.TickLowerIndex),
		zap.Int32("tick_upper", position.TickUpperIndex),
		zap.Int("tick_array_inits", len(inits)))

	return &OpenPositionResult{
		Position:     position,
		Instructions: append([]solana.Instruction{open}, inits...),
	}, nil
}

// InitializeTickArrays returns initialize_tick_array instructions for the position's
// tick arrays that do not exist yet.
func (a *Assembler) InitializeTickArrays(ctx context.Context, id VaultIdentity, position *PositionRecord, funder solana.PublicKey) ([]solana.Instruction, error) {
	pool, err := a.cache.PoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	return a.tickArrayInitInstructions(ctx, pool, position, funder)
}

func (a *Assembler) tickArrayInitInstructions(ctx context.Context, pool *PoolSnapshot, position *PositionRecord, funder solana.PublicKey) ([]solana.Instruction, error) {
	starts := position.tickArrayStarts(pool.TickSpacing)
	addresses := make([]solana.PublicKey, len(starts))
	for i, start := range starts {
		addr, err := whirlpool.TickArrayAddress(pool.Address, start)
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}

	existing, err := a.fetcher.FetchAccounts(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to check tick arrays: %w", err)
	}

	var out []solana.Instruction
	for i, data := range existing {
		if data != nil {
			continue
		}
		ix, err := whirlpool.NewInitializeTickArrayInstruction(pool.Address, funder, addresses[i], starts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

// LoadPosition rebuilds the record of an opened position from its on-chain account.
func (a *Assembler) LoadPosition(ctx context.Context, id VaultIdentity, positionMint solana.PublicKey) (*PositionRecord, error) {
	state, err := a.FetchPosition(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	pool, err := a.cache.PoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	decimalsA, err := a.cache.MintDecimals(ctx, pool.TokenMintA)
	if err != nil {
		return nil, err
	}
	decimalsB, err := a.cache.MintDecimals(ctx, pool.TokenMintB)
	if err != nil {
		return nil, err
	}
	return NewPositionRecord(keys, pool, positionMint, state.TickLowerIndex, state.TickUpperIndex, decimalsA, decimalsB)
}

// FetchPosition reads the Whirlpool position account of a position mint.
func (a *Assembler) FetchPosition(ctx context.Context, positionMint solana.PublicKey) (*PositionState, error) {
	address, _, err := whirlpool.PositionAddress(positionMint)
	if err != nil {
		return nil, err
	}
	data, err := a.fetcher.FetchAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("position %s: %w", address, err)
	}
	pos, err := whirlpool.DecodePosition(data)
	if err != nil {
		return nil, err
	}

	state := &PositionState{
		Address:        address,
		Mint:           pos.PositionMint,
		Liquidity:      pos.Liquidity,
		TickLowerIndex: pos.TickLowerIndex,
		TickUpperIndex: pos.TickUpperIndex,
		FeeOwedA:       pos.FeeOwedA,
		FeeOwedB:       pos.FeeOwedB,
		Empty:          pos.Empty(),
	}
	for i, r := range pos.Rewards {
		state.RewardsOwed[i] = r.AmountOwed
	}
	return state, nil
}

// LiquidityParams – параметры deposit/withdraw. Для deposit суммы являются потолком,
// для withdraw – минимумом.
type LiquidityParams struct {
	Vault      VaultIdentity
	Position   *PositionRecord
	LpAmount   uint64
	AmountA    uint64
	AmountB    uint64
	UserSigner solana.PublicKey
}

// Deposit builds the deposit instruction. AmountA and AmountB cap the tokens debited.
func (a *Assembler) Deposit(ctx context.Context, p LiquidityParams) (solana.Instruction, error) {
	accounts, err := a.liquidityAccounts(ctx, p)
	if err != nil {
		return nil, err
	}
	return newDepositInstruction(a.cfg.ProgramID, accounts, p.LpAmount, p.AmountA, p.AmountB)
}

// Withdraw builds the withdraw instruction. AmountA and AmountB are the minimum received.
func (a *Assembler) Withdraw(ctx context.Context, p LiquidityParams) (solana.Instruction, error) {
	accounts, err := a.liquidityAccounts(ctx, p)
	if err != nil {
		return nil, err
	}
	return newWithdrawInstruction(a.cfg.ProgramID, accounts, p.LpAmount, p.AmountA, p.AmountB)
}

func (a *Assembler) liquidityAccounts(ctx context.Context, p LiquidityParams) (depositWithdrawAccounts, error) {
	if p.Position == nil {
		return depositWithdrawAccounts{}, fmt.Errorf("%w: position", ErrMissingAccount)
	}
	pool, err := a.cache.PoolSnapshot(ctx, p.Vault.Pool)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}
	keys, err := a.cache.VaultKeys(ctx, p.Vault)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}
	position, err := NewPositionAccounts(pool.Address, p.Position)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}

	userLp, err := DeriveTokenAccount(p.UserSigner, keys.LpMint)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}
	userA, err := DeriveTokenAccount(p.UserSigner, keys.MintA)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}
	userB, err := DeriveTokenAccount(p.UserSigner, keys.MintB)
	if err != nil {
		return depositWithdrawAccounts{}, err
	}

	return depositWithdrawAccounts{
		UserSigner:  p.UserSigner,
		Vault:       keys.VaultAccount,
		LpMint:      keys.LpMint,
		VaultInputA: keys.VaultInputTokenA,
		VaultInputB: keys.VaultInputTokenB,
		UserLp:      userLp,
		UserA:       userA,
		UserB:       userB,
		Position:    position,
		TokenVaultA: pool.TokenVaultA,
		TokenVaultB: pool.TokenVaultB,
	}, nil
}

// RebalanceParams – перенос ликвидности между позициями
type RebalanceParams struct {
	Vault      VaultIdentity
	Current    *PositionRecord
	New        *PositionRecord
	UserSigner solana.PublicKey
}

// Rebalance moves the vault's liquidity from Current into New. The pool is read fresh.
func (a *Assembler) Rebalance(ctx context.Context, p RebalanceParams) (solana.Instruction, error) {
	if p.Current == nil || p.New == nil {
		return nil, fmt.Errorf("%w: rebalance needs both positions", ErrMissingAccount)
	}
	pool, err := a.cache.RefreshPoolSnapshot(ctx, p.Vault.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, p.Vault)
	if err != nil {
		return nil, err
	}
	current, err := NewPositionAccounts(pool.Address, p.Current)
	if err != nil {
		return nil, err
	}
	target, err := NewPositionAccounts(pool.Address, p.New)
	if err != nil {
		return nil, err
	}

	return newRebalanceInstruction(a.cfg.ProgramID, rebalanceAccounts{
		UserSigner:  p.UserSigner,
		Vault:       keys.VaultAccount,
		VaultInputA: keys.VaultInputTokenA,
		VaultInputB: keys.VaultInputTokenB,
		TokenVaultA: pool.TokenVaultA,
		TokenVaultB: pool.TokenVaultB,
		Current:     current,
		New:         target,
	})
}

// Reinvest puts the tokens held in the vault input accounts back into the position. The
// pool and the input balances are read fresh; the swap direction follows the larger side.
func (a *Assembler) Reinvest(ctx context.Context, id VaultIdentity, position *PositionRecord) (solana.Instruction, error) {
	if position == nil {
		return nil, fmt.Errorf("%w: position", ErrMissingAccount)
	}
	pool, err := a.cache.RefreshPoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	positionAccounts, err := NewPositionAccounts(pool.Address, position)
	if err != nil {
		return nil, err
	}

	balances, err := fetchTokenBalances(ctx, a.fetcher, keys.VaultInputTokenA, keys.VaultInputTokenB)
	if err != nil {
		return nil, err
	}
	aToB := reinvestSwapAToB(balances[0].Amount, balances[1].Amount, pool.SqrtPrice)

	tickArrays, err := whirlpool.TickArrayAddressesForSwap(pool.Address, pool.TickCurrentIndex, pool.TickSpacing, aToB)
	if err != nil {
		return nil, err
	}
	oracle, err := whirlpool.OracleAddress(pool.Address)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Reinvest direction",
		zap.String("vault", id.String()),
		zap.Uint64("amount_a", balances[0].Amount),
		zap.Uint64("amount_b", balances[1].Amount),
		zap.Bool("a_to_b", aToB))

	return newReinvestInstruction(a.cfg.ProgramID, reinvestAccounts{
		Vault:       keys.VaultAccount,
		LpMint:      keys.LpMint,
		VaultInputA: keys.VaultInputTokenA,
		VaultInputB: keys.VaultInputTokenB,
		TokenVaultA: pool.TokenVaultA,
		TokenVaultB: pool.TokenVaultB,
		Position:    positionAccounts,
		TickArrays:  tickArrays,
		Oracle:      oracle,
	})
}

// reinvestSwapAToB сравнивает стоимость A (в единицах B) с количеством B
func reinvestSwapAToB(amountA, amountB uint64, sqrtPrice uint128.Uint128) bool {
	q64 := cosmath.NewIntFromBigInt(uint128.New(0, 1).Big())
	sqrt := cosmath.NewIntFromBigInt(sqrtPrice.Big())
	valueA := cosmath.NewIntFromUint64(amountA).Mul(sqrt).Quo(q64).Mul(sqrt).Quo(q64)
	return valueA.GTE(cosmath.NewIntFromUint64(amountB))
}

// ReinvestAndRebalance bundles reinvest and rebalance into one operation with a raised
// compute limit. Only available when the cluster limits allow it.
func (a *Assembler) ReinvestAndRebalance(ctx context.Context, p RebalanceParams) ([]solana.Instruction, error) {
	if !a.cfg.CombineReinvestRebalance {
		return nil, fmt.Errorf("%w: reinvest and rebalance must be submitted separately", ErrCapabilityDisabled)
	}
	limit, err := computebudget.BuildInstructions(computebudget.Config{Units: a.cfg.ReinvestComputeUnits})
	if err != nil {
		return nil, err
	}
	reinvest, err := a.Reinvest(ctx, p.Vault, p.Current)
	if err != nil {
		return nil, err
	}
	rebalance, err := a.Rebalance(ctx, p)
	if err != nil {
		return nil, err
	}
	return append(limit, reinvest, rebalance), nil
}

// CollectFees pulls accrued trading fees of the position into the vault input accounts.
func (a *Assembler) CollectFees(ctx context.Context, id VaultIdentity, position *PositionRecord, userSigner solana.PublicKey) (solana.Instruction, error) {
	if position == nil {
		return nil, fmt.Errorf("%w: position", ErrMissingAccount)
	}
	pool, err := a.cache.PoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	positionAccounts, err := NewPositionAccounts(pool.Address, position)
	if err != nil {
		return nil, err
	}
	return newCollectFeesInstruction(a.cfg.ProgramID, collectFeesAccounts{
		UserSigner:  userSigner,
		Vault:       keys.VaultAccount,
		VaultInputA: keys.VaultInputTokenA,
		VaultInputB: keys.VaultInputTokenB,
		TokenVaultA: pool.TokenVaultA,
		TokenVaultB: pool.TokenVaultB,
		Position:    positionAccounts,
	})
}

// CollectRewards emits one collect_rewards instruction per active reward slot. Reward
// state is read fresh.
func (a *Assembler) CollectRewards(ctx context.Context, id VaultIdentity, position *PositionRecord, userSigner solana.PublicKey) ([]solana.Instruction, error) {
	if position == nil {
		return nil, fmt.Errorf("%w: position", ErrMissingAccount)
	}
	pool, err := a.cache.RefreshPoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	positionAccounts, err := NewPositionAccounts(pool.Address, position)
	if err != nil {
		return nil, err
	}

	var out []solana.Instruction
	for _, slot := range pool.ActiveRewards() {
		rewardsToken, err := keys.RewardTokenAccount(slot.Mint)
		if err != nil {
			return nil, err
		}
		ix, err := newCollectRewardsInstruction(a.cfg.ProgramID, collectRewardsAccounts{
			UserSigner:        userSigner,
			Vault:             keys.VaultAccount,
			VaultRewardsToken: rewardsToken,
			RewardVault:       slot.Vault,
			Position:          positionAccounts,
		}, slot.Index)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

// SwapRewards routes collected rewards through the AMM, see Router.BuildSwapInstructions.
func (a *Assembler) SwapRewards(ctx context.Context, id VaultIdentity, userSigner solana.PublicKey) ([]solana.Instruction, error) {
	return a.router.BuildSwapInstructions(ctx, id, userSigner)
}

// TransferRewards sends collected rewards to their destinations.
func (a *Assembler) TransferRewards(ctx context.Context, id VaultIdentity) ([]solana.Instruction, error) {
	return a.router.BuildTransferInstructions(ctx, id)
}

// SetRewardRoute configures one reward slot, see Router.SetRoute.
func (a *Assembler) SetRewardRoute(ctx context.Context, p SetRouteParams) (solana.Instruction, error) {
	return a.router.SetRoute(ctx, p)
}

// ClosePosition closes an empty position. A position that still holds liquidity, fees or
// rewards is rejected on chain with ErrPositionInUse.
func (a *Assembler) ClosePosition(ctx context.Context, id VaultIdentity, position *PositionRecord, userSigner solana.PublicKey) (solana.Instruction, error) {
	if position == nil {
		return nil, fmt.Errorf("%w: position", ErrMissingAccount)
	}
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	return newClosePositionInstruction(a.cfg.ProgramID, closePositionAccounts{
		UserSigner:           userSigner,
		Vault:                keys.VaultAccount,
		Position:             position.Address,
		PositionMint:         position.Mint,
		PositionTokenAccount: position.TokenAccount,
	})
}

// SetVaultFee changes the vault fee (0..FeeScale).
func (a *Assembler) SetVaultFee(ctx context.Context, id VaultIdentity, fee uint64, userSigner solana.PublicKey) (solana.Instruction, error) {
	if fee > FeeScale {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidFee, fee, FeeScale)
	}
	accounts, err := a.adminAccounts(ctx, id, userSigner)
	if err != nil {
		return nil, err
	}
	return newSetVaultFeeInstruction(a.cfg.ProgramID, accounts, fee)
}

// SetVaultPauseStatus pauses or resumes deposits.
func (a *Assembler) SetVaultPauseStatus(ctx context.Context, id VaultIdentity, paused bool, userSigner solana.PublicKey) (solana.Instruction, error) {
	accounts, err := a.adminAccounts(ctx, id, userSigner)
	if err != nil {
		return nil, err
	}
	return newSetVaultPauseStatusInstruction(a.cfg.ProgramID, accounts, paused)
}

// SetMinSlotsForReinvest sets how many slots must pass between reinvests.
func (a *Assembler) SetMinSlotsForReinvest(ctx context.Context, id VaultIdentity, slots uint64, userSigner solana.PublicKey) (solana.Instruction, error) {
	accounts, err := a.adminAccounts(ctx, id, userSigner)
	if err != nil {
		return nil, err
	}
	return newSetMinSlotsForReinvestInstruction(a.cfg.ProgramID, accounts, slots)
}

func (a *Assembler) adminAccounts(ctx context.Context, id VaultIdentity, userSigner solana.PublicKey) (vaultAdminAccounts, error) {
	keys, err := a.cache.VaultKeys(ctx, id)
	if err != nil {
		return vaultAdminAccounts{}, err
	}
	return vaultAdminAccounts{UserSigner: userSigner, Vault: keys.VaultAccount}, nil
}
