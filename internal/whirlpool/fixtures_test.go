package whirlpool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// encodePool собирает account data пула для тестов DecodePool
func encodePool(p *Pool) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{
		PoolDiscriminator,
		p.WhirlpoolsConfig,
		p.WhirlpoolBump,
		p.TickSpacing,
		p.FeeTierIndexSeed,
		p.FeeRate,
		p.ProtocolFeeRate,
		p.Liquidity.Lo, p.Liquidity.Hi,
		p.SqrtPrice.Lo, p.SqrtPrice.Hi,
		p.TickCurrentIndex,
		p.ProtocolFeeOwedA,
		p.ProtocolFeeOwedB,
		p.TokenMintA,
		p.TokenVaultA,
		p.FeeGrowthGlobalA.Lo, p.FeeGrowthGlobalA.Hi,
		p.TokenMintB,
		p.TokenVaultB,
		p.FeeGrowthGlobalB.Lo, p.FeeGrowthGlobalB.Hi,
		p.RewardLastUpdatedTimestamp,
	}
	for _, ri := range p.RewardInfos {
		fields = append(fields,
			ri.Mint, ri.Vault, ri.Authority,
			ri.EmissionsPerSecondX64.Lo, ri.EmissionsPerSecondX64.Hi,
			ri.GrowthGlobalX64.Lo, ri.GrowthGlobalX64.Hi,
		)
	}
	for _, f := range fields {
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("failed to encode whirlpool: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func encodePosition(p *Position) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{
		PositionDiscriminator,
		p.Whirlpool,
		p.PositionMint,
		p.Liquidity.Lo, p.Liquidity.Hi,
		p.TickLowerIndex,
		p.TickUpperIndex,
		p.FeeGrowthCheckpointA.Lo, p.FeeGrowthCheckpointA.Hi,
		p.FeeOwedA,
		p.FeeGrowthCheckpointB.Lo, p.FeeGrowthCheckpointB.Hi,
		p.FeeOwedB,
	}
	for _, r := range p.Rewards {
		fields = append(fields, r.GrowthInsideCheckpoint.Lo, r.GrowthInsideCheckpoint.Hi, r.AmountOwed)
	}
	for _, f := range fields {
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("failed to encode position: %w", err)
		}
	}
	return buf.Bytes(), nil
}
