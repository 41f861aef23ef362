// internal/vault/rewards.go
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// SetRouteParams – параметры конфигурации маршрута награды
type SetRouteParams struct {
	Vault            VaultIdentity
	UserSigner       solana.PublicKey
	RewardIndex      uint8
	Kind             RouteKind
	Destination      solana.PublicKey
	MinimumAmountOut uint64
	MarketPool       solana.PublicKey
}

func (p SetRouteParams) record() RewardRouteRecord {
	return RewardRouteRecord{
		RewardIndex:      p.RewardIndex,
		Kind:             p.Kind,
		Destination:      p.Destination,
		MinimumAmountOut: p.MinimumAmountOut,
		MarketPool:       p.MarketPool,
	}
}

// Router хранит таблицу маршрутов наград по vault'ам и собирает инструкции
// swap_rewards и transfer_rewards.
type Router struct {
	cfg    *Config
	cache  *Cache
	logger *zap.Logger

	mu     sync.RWMutex
	routes map[string][NumRewardSlots]*RewardRouteRecord
}

// NewRouter создает роутер с пустой таблицей
func NewRouter(cfg *Config, cache *Cache, logger *zap.Logger) *Router {
	return &Router{
		cfg:    cfg,
		cache:  cache,
		logger: logger.Named("reward-router"),
		routes: make(map[string][NumRewardSlots]*RewardRouteRecord),
	}
}

// validateRoute checks a route without touching the network.
func validateRoute(r RewardRouteRecord) error {
	if int(r.RewardIndex) >= NumRewardSlots {
		return fmt.Errorf("%w: %d, pool has %d reward slots", ErrInvalidRewardIndex, r.RewardIndex, NumRewardSlots)
	}
	switch r.Kind {
	case RouteSwapOnAmm:
		if r.MinimumAmountOut == 0 {
			return fmt.Errorf("%w: minimum amount out must be positive for slot %d", ErrMissingSwapParameter, r.RewardIndex)
		}
		if r.MarketPool.IsZero() {
			return fmt.Errorf("%w: market pool is not set for slot %d", ErrMissingSwapParameter, r.RewardIndex)
		}
	case RouteDirectTransfer:
	default:
		return fmt.Errorf("%w: slot %d has route kind %s", ErrRouteNotConfigured, r.RewardIndex, r.Kind)
	}
	if r.Destination.IsZero() {
		return fmt.Errorf("%w: destination of slot %d", ErrMissingAccount, r.RewardIndex)
	}
	return nil
}

// SetRoute builds the set_market_rewards instruction for one slot and records the route.
// Identical parameters always produce identical instructions.
func (r *Router) SetRoute(ctx context.Context, p SetRouteParams) (solana.Instruction, error) {
	rec := p.record()
	if err := validateRoute(rec); err != nil {
		return nil, err
	}

	pool, err := r.cache.PoolSnapshot(ctx, p.Vault.Pool)
	if err != nil {
		return nil, err
	}
	slot := pool.RewardInfos[p.RewardIndex]
	if !slot.Active() {
		return nil, fmt.Errorf("%w: slot %d of pool %s has no reward mint", ErrInvalidRewardIndex, p.RewardIndex, pool.Address)
	}
	keys, err := r.cache.VaultKeys(ctx, p.Vault)
	if err != nil {
		return nil, err
	}

	accounts := setMarketRewardsAccounts{
		UserSigner:  p.UserSigner,
		Vault:       keys.VaultAccount,
		Whirlpool:   pool.Address,
		RewardsMint: slot.Mint,
		Destination: p.Destination,
	}
	if p.Kind == RouteSwapOnAmm {
		accounts.MarketPool = p.MarketPool
	}
	ix, err := newSetMarketRewardsInstruction(r.cfg.ProgramID, accounts, p.Kind, p.MinimumAmountOut)
	if err != nil {
		return nil, err
	}

	r.store(p.Vault, rec)
	return ix, nil
}

// SeedRoutes records routes that are already configured on chain, e.g. after a confirmed
// vault initialization or from configuration.
func (r *Router) SeedRoutes(id VaultIdentity, routes ...RewardRouteRecord) error {
	for _, rec := range routes {
		if err := validateRoute(rec); err != nil {
			return err
		}
	}
	for _, rec := range routes {
		r.store(id, rec)
	}
	return nil
}

func (r *Router) store(id VaultIdentity, rec RewardRouteRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.routes[id.String()]
	table[rec.RewardIndex] = &rec
	r.routes[id.String()] = table

	r.logger.Debug("Reward route recorded",
		zap.String("vault", id.String()),
		zap.Uint8("reward_index", rec.RewardIndex),
		zap.String("kind", rec.Kind.String()))
}

// Route returns a copy of the configured route of a slot.
func (r *Router) Route(id VaultIdentity, index uint8) (RewardRouteRecord, bool) {
	if int(index) >= NumRewardSlots {
		return RewardRouteRecord{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec := r.routes[id.String()][index]
	if rec == nil {
		return RewardRouteRecord{}, false
	}
	return *rec, true
}

// routesForActiveSlots pairs every active slot with its route. A slot without a route
// fails with ErrRouteNotConfigured.
func (r *Router) routesForActiveSlots(id VaultIdentity, pool *PoolSnapshot) ([]RewardSlot, []RewardRouteRecord, error) {
	slots := pool.ActiveRewards()
	routes := make([]RewardRouteRecord, len(slots))
	for i, slot := range slots {
		rec, ok := r.Route(id, slot.Index)
		if !ok {
			return nil, nil, fmt.Errorf("%w: vault %s slot %d (%s)", ErrRouteNotConfigured, id, slot.Index, slot.Mint)
		}
		routes[i] = rec
	}
	return slots, routes, nil
}

// BuildSwapInstructions emits one swap_rewards instruction per slot routed through the AMM.
// Pool state is read fresh; balances are not inspected.
func (r *Router) BuildSwapInstructions(ctx context.Context, id VaultIdentity, userSigner solana.PublicKey) ([]solana.Instruction, error) {
	pool, err := r.cache.RefreshPoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := r.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, routes, err := r.routesForActiveSlots(id, pool)
	if err != nil {
		return nil, err
	}

	var out []solana.Instruction
	for i, slot := range slots {
		route := routes[i]
		if route.Kind != RouteSwapOnAmm {
			continue
		}

		market, err := r.cache.RefreshPoolSnapshot(ctx, route.MarketPool)
		if err != nil {
			return nil, fmt.Errorf("market pool of slot %d: %w", slot.Index, err)
		}
		if !market.HasMint(slot.Mint) {
			return nil, fmt.Errorf("%w: market pool %s does not trade reward %s", ErrWrongMint, market.Address, slot.Mint)
		}
		aToB := slot.Mint.Equals(market.TokenMintA)
		outputMint := market.TokenMintA
		if aToB {
			outputMint = market.TokenMintB
		}
		destination, ok := keys.InputTokenAccount(outputMint)
		if !ok {
			return nil, fmt.Errorf("%w: market pool %s swaps into %s, not a vault token", ErrWrongMint, market.Address, outputMint)
		}
		if !route.Destination.Equals(destination) {
			return nil, fmt.Errorf("%w: slot %d destination %s is not the vault input account %s",
				ErrWrongMint, slot.Index, route.Destination, destination)
		}

		rewardsToken, err := keys.RewardTokenAccount(slot.Mint)
		if err != nil {
			return nil, err
		}
		swap, err := whirlpool.NewSwapAccounts(market.Address, market.TokenVaultA, market.TokenVaultB,
			market.TickCurrentIndex, market.TickSpacing, aToB)
		if err != nil {
			return nil, err
		}

		ix, err := newSwapRewardsInstruction(r.cfg.ProgramID, swapRewardsAccounts{
			UserSigner:            userSigner,
			Vault:                 keys.VaultAccount,
			VaultRewardsToken:     rewardsToken,
			VaultDestinationToken: destination,
			Swap:                  swap,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

// BuildTransferInstructions emits one transfer_rewards instruction per slot routed to a
// fixed destination.
func (r *Router) BuildTransferInstructions(ctx context.Context, id VaultIdentity) ([]solana.Instruction, error) {
	pool, err := r.cache.PoolSnapshot(ctx, id.Pool)
	if err != nil {
		return nil, err
	}
	keys, err := r.cache.VaultKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, routes, err := r.routesForActiveSlots(id, pool)
	if err != nil {
		return nil, err
	}

	var out []solana.Instruction
	for i, slot := range slots {
		if routes[i].Kind != RouteDirectTransfer {
			continue
		}
		rewardsToken, err := keys.RewardTokenAccount(slot.Mint)
		if err != nil {
			return nil, err
		}
		ix, err := newTransferRewardsInstruction(r.cfg.ProgramID, transferRewardsAccounts{
			Vault:             keys.VaultAccount,
			VaultRewardsToken: rewardsToken,
			Destination:       routes[i].Destination,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}
