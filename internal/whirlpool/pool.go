// internal/whirlpool/pool.go
package whirlpool

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	ubin "github.com/rovshanmuradov/nazare-vault/internal/utils/binary"
)

var (
	ErrInvalidDiscriminator = errors.New("unexpected account discriminator")
	ErrInvalidAccountSize   = errors.New("unexpected account size")
)

// RewardInfo – слот награды пула
type RewardInfo struct {
	Mint                  solana.PublicKey
	Vault                 solana.PublicKey
	Authority             solana.PublicKey
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

// Initialized reports whether the slot carries a real reward mint. Unused slots
// hold the default (all-zero) key.
func (r RewardInfo) Initialized() bool {
	return !r.Mint.IsZero()
}

// Pool – аккаунт Whirlpool (653 байта вместе с дискриминатором)
type Pool struct {
	WhirlpoolsConfig solana.PublicKey
	WhirlpoolBump    uint8
	TickSpacing      uint16
	FeeTierIndexSeed [2]byte
	FeeRate          uint16
	ProtocolFeeRate  uint16

	Liquidity        uint128.Uint128
	SqrtPrice        uint128.Uint128
	TickCurrentIndex int32

	ProtocolFeeOwedA uint64
	ProtocolFeeOwedB uint64

	TokenMintA       solana.PublicKey
	TokenVaultA      solana.PublicKey
	FeeGrowthGlobalA uint128.Uint128

	TokenMintB       solana.PublicKey
	TokenVaultB      solana.PublicKey
	FeeGrowthGlobalB uint128.Uint128

	RewardLastUpdatedTimestamp uint64
	RewardInfos                [NumRewards]RewardInfo
}

// DecodePool parses raw Whirlpool account data.
func DecodePool(data []byte) (*Pool, error) {
	if len(data) < PoolAccountSize {
		return nil, fmt.Errorf("%w: pool has %d bytes, want %d", ErrInvalidAccountSize, len(data), PoolAccountSize)
	}
	if !bytes.Equal(data[:8], PoolDiscriminator[:]) {
		return nil, fmt.Errorf("%w: not a whirlpool", ErrInvalidDiscriminator)
	}

	r := ubin.NewReader(data)
	r.Skip(8)

	p := &Pool{}
	p.WhirlpoolsConfig = r.PubKey()
	p.WhirlpoolBump = r.Uint8()
	p.TickSpacing = r.Uint16()
	p.FeeTierIndexSeed[0] = r.Uint8()
	p.FeeTierIndexSeed[1] = r.Uint8()
	p.FeeRate = r.Uint16()
	p.ProtocolFeeRate = r.Uint16()
	p.Liquidity = r.Uint128()
	p.SqrtPrice = r.Uint128()
	p.TickCurrentIndex = r.Int32()
	p.ProtocolFeeOwedA = r.Uint64()
	p.ProtocolFeeOwedB = r.Uint64()
	p.TokenMintA = r.PubKey()
	p.TokenVaultA = r.PubKey()
	p.FeeGrowthGlobalA = r.Uint128()
	p.TokenMintB = r.PubKey()
	p.TokenVaultB = r.PubKey()
	p.FeeGrowthGlobalB = r.Uint128()
	p.RewardLastUpdatedTimestamp = r.Uint64()
	for i := range p.RewardInfos {
		p.RewardInfos[i] = RewardInfo{
			Mint:                  r.PubKey(),
			Vault:                 r.PubKey(),
			Authority:             r.PubKey(),
			EmissionsPerSecondX64: r.Uint128(),
			GrowthGlobalX64:       r.Uint128(),
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode whirlpool: %w", err)
	}
	return p, nil
}

// PositionReward – накопленная награда позиции по слоту
type PositionReward struct {
	GrowthInsideCheckpoint uint128.Uint128
	AmountOwed             uint64
}

// Position – аккаунт позиции Whirlpool
type Position struct {
	Whirlpool      solana.PublicKey
	PositionMint   solana.PublicKey
	Liquidity      uint128.Uint128
	TickLowerIndex int32
	TickUpperIndex int32

	FeeGrowthCheckpointA uint128.Uint128
	FeeOwedA             uint64
	FeeGrowthCheckpointB uint128.Uint128
	FeeOwedB             uint64

	Rewards [NumRewards]PositionReward
}

// Empty reports whether the position can be closed.
func (p *Position) Empty() bool {
	if !p.Liquidity.IsZero() || p.FeeOwedA != 0 || p.FeeOwedB != 0 {
		return false
	}
	for _, r := range p.Rewards {
		if r.AmountOwed != 0 {
			return false
		}
	}
	return true
}

// DecodePosition parses raw Whirlpool position account data.
func DecodePosition(data []byte) (*Position, error) {
	if len(data) < PositionAccountSize {
		return nil, fmt.Errorf("%w: position has %d bytes, want %d", ErrInvalidAccountSize, len(data), PositionAccountSize)
	}
	if !bytes.Equal(data[:8], PositionDiscriminator[:]) {
		return nil, fmt.Errorf("%w: not a position", ErrInvalidDiscriminator)
	}

	r := ubin.NewReader(data)
	r.Skip(8)

	p := &Position{
		Whirlpool:            r.PubKey(),
		PositionMint:         r.PubKey(),
		Liquidity:            r.Uint128(),
		TickLowerIndex:       r.Int32(),
		TickUpperIndex:       r.Int32(),
		FeeGrowthCheckpointA: r.Uint128(),
		FeeOwedA:             r.Uint64(),
		FeeGrowthCheckpointB: r.Uint128(),
		FeeOwedB:             r.Uint64(),
	}
	for i := range p.Rewards {
		p.Rewards[i] = PositionReward{
			GrowthInsideCheckpoint: r.Uint128(),
			AmountOwed:             r.Uint64(),
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode position: %w", err)
	}
	return p, nil
}
