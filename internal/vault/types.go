// internal/vault/types.go
package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// VaultIdentity identifies a vault: the underlying pool plus an index, so one pool
// can back several vaults.
type VaultIdentity struct {
	Pool  solana.PublicKey
	Index uint8
}

// String returns the canonical cache key.
func (id VaultIdentity) String() string {
	return fmt.Sprintf("%s:%d", id.Pool, id.Index)
}

// VaultKeys – набор адресов, производных от VaultIdentity и минтов пула.
type VaultKeys struct {
	Identity VaultIdentity
	MintA    solana.PublicKey
	MintB    solana.PublicKey

	VaultAccount     solana.PublicKey
	VaultBump        uint8
	LpMint           solana.PublicKey
	LpMintBump       uint8
	VaultInputTokenA solana.PublicKey
	VaultInputTokenB solana.PublicKey
	TreasuryLpToken  solana.PublicKey
}

// RewardSlot – слот награды пула
type RewardSlot struct {
	Index uint8
	Mint  solana.PublicKey
	Vault solana.PublicKey
}

// Active reports whether the slot holds a reward mint. Unused slots carry the
// default (all-zero) key.
func (s RewardSlot) Active() bool {
	return !s.Mint.IsZero()
}

// PoolSnapshot is a point-in-time read of the underlying pool. Snapshots are shared
// between callers and must not be modified.
type PoolSnapshot struct {
	Address          solana.PublicKey
	TokenMintA       solana.PublicKey
	TokenMintB       solana.PublicKey
	TokenVaultA      solana.PublicKey
	TokenVaultB      solana.PublicKey
	TickSpacing      uint16
	TickCurrentIndex int32
	SqrtPrice        uint128.Uint128
	Liquidity        uint128.Uint128
	FeeRate          uint16
	RewardInfos      [NumRewardSlots]RewardSlot
	FetchedAt        time.Time
}

func newPoolSnapshot(address solana.PublicKey, p *whirlpool.Pool, at time.Time) *PoolSnapshot {
	s := &PoolSnapshot{
		Address:          address,
		TokenMintA:       p.TokenMintA,
		TokenMintB:       p.TokenMintB,
		TokenVaultA:      p.TokenVaultA,
		TokenVaultB:      p.TokenVaultB,
		TickSpacing:      p.TickSpacing,
		TickCurrentIndex: p.TickCurrentIndex,
		SqrtPrice:        p.SqrtPrice,
		Liquidity:        p.Liquidity,
		FeeRate:          p.FeeRate,
		FetchedAt:        at,
	}
	for i, ri := range p.RewardInfos {
		s.RewardInfos[i] = RewardSlot{Index: uint8(i), Mint: ri.Mint, Vault: ri.Vault}
	}
	return s
}

// ActiveRewards returns the reward slots that carry a real mint, in slot order.
func (p *PoolSnapshot) ActiveRewards() []RewardSlot {
	out := make([]RewardSlot, 0, NumRewardSlots)
	for _, s := range p.RewardInfos {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// HasMint reports whether mint is one of the pool's two tokens.
func (p *PoolSnapshot) HasMint(mint solana.PublicKey) bool {
	return p.TokenMintA.Equals(mint) || p.TokenMintB.Equals(mint)
}

// PositionRecord – позиция vault'а со всеми производными адресами
type PositionRecord struct {
	Mint           solana.PublicKey
	Address        solana.PublicKey
	Bump           uint8
	TokenAccount   solana.PublicKey
	TickLowerIndex int32
	TickUpperIndex int32
	TickArrayLower solana.PublicKey
	TickArrayUpper solana.PublicKey
	PriceLower     decimal.Decimal
	PriceUpper     decimal.Decimal
}

// RouteKind – способ распоряжения собранной наградой
type RouteKind uint8

const (
	RouteNotSet RouteKind = iota
	RouteDirectTransfer
	RouteSwapOnAmm
)

func (k RouteKind) String() string {
	switch k {
	case RouteDirectTransfer:
		return "transfer"
	case RouteSwapOnAmm:
		return "swap"
	default:
		return "not_set"
	}
}

// ParseRouteKind parses the config/CLI spelling of a route kind.
func ParseRouteKind(s string) (RouteKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transfer", "direct_transfer":
		return RouteDirectTransfer, nil
	case "swap", "swap_on_amm":
		return RouteSwapOnAmm, nil
	case "", "not_set":
		return RouteNotSet, nil
	}
	return RouteNotSet, fmt.Errorf("unknown route kind %q", s)
}

// RewardRouteRecord describes what happens to one reward slot's collected balance.
type RewardRouteRecord struct {
	RewardIndex      uint8
	Kind             RouteKind
	Destination      solana.PublicKey
	MinimumAmountOut uint64
	// MarketPool – пул Whirlpool, через который награда меняется во входной токен
	MarketPool solana.PublicKey
}

// PositionState – состояние позиции в Whirlpool
type PositionState struct {
	Address        solana.PublicKey
	Mint           solana.PublicKey
	Liquidity      uint128.Uint128
	TickLowerIndex int32
	TickUpperIndex int32
	FeeOwedA       uint64
	FeeOwedB       uint64
	RewardsOwed    [NumRewardSlots]uint64
	Empty          bool
}
