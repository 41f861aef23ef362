// internal/vault/planner.go
package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// PlanTicks converts a price range into initializable ticks of the pool. The lower bound
// rounds up and the upper bound rounds down, so the planned range never exceeds the
// requested one.
func PlanTicks(pool *PoolSnapshot, lowerPrice, upperPrice decimal.Decimal, decimalsA, decimalsB uint8) (int32, int32, error) {
	if pool.TickSpacing == 0 {
		return 0, 0, fmt.Errorf("pool %s has zero tick spacing", pool.Address)
	}
	if !lowerPrice.IsPositive() || !upperPrice.GreaterThan(lowerPrice) {
		return 0, 0, fmt.Errorf("%w: lower %s, upper %s", ErrInvalidRange, lowerPrice, upperPrice)
	}

	rawLower, err := whirlpool.PriceToTick(lowerPrice, decimalsA, decimalsB)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	rawUpper, err := whirlpool.PriceToTick(upperPrice, decimalsA, decimalsB)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	lower := whirlpool.InitializableTickAtOrAbove(rawLower, pool.TickSpacing)
	upper := whirlpool.InitializableTickAtOrBelow(rawUpper, pool.TickSpacing)
	if lower >= upper {
		return 0, 0, fmt.Errorf("%w: range %s..%s is narrower than tick spacing %d (ticks %d..%d)",
			ErrInvalidRange, lowerPrice, upperPrice, pool.TickSpacing, lower, upper)
	}
	return lower, upper, nil
}

// PlanPosition plans a new position of the vault: ticks plus every address the position
// needs.
func PlanPosition(keys *VaultKeys, pool *PoolSnapshot, positionMint solana.PublicKey,
	lowerPrice, upperPrice decimal.Decimal, decimalsA, decimalsB uint8) (*PositionRecord, error) {
	lower, upper, err := PlanTicks(pool, lowerPrice, upperPrice, decimalsA, decimalsB)
	if err != nil {
		return nil, err
	}
	return NewPositionRecord(keys, pool, positionMint, lower, upper, decimalsA, decimalsB)
}

// NewPositionRecord derives the address set of a vault position with known ticks.
func NewPositionRecord(keys *VaultKeys, pool *PoolSnapshot, positionMint solana.PublicKey,
	tickLower, tickUpper int32, decimalsA, decimalsB uint8) (*PositionRecord, error) {
	address, bump, err := whirlpool.PositionAddress(positionMint)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := DeriveTokenAccount(keys.VaultAccount, positionMint)
	if err != nil {
		return nil, err
	}
	arrayLower, err := whirlpool.TickArrayAddress(pool.Address, whirlpool.TickArrayStartIndex(tickLower, pool.TickSpacing))
	if err != nil {
		return nil, err
	}
	arrayUpper, err := whirlpool.TickArrayAddress(pool.Address, whirlpool.TickArrayStartIndex(tickUpper, pool.TickSpacing))
	if err != nil {
		return nil, err
	}

	return &PositionRecord{
		Mint:           positionMint,
		Address:        address,
		Bump:           bump,
		TokenAccount:   tokenAccount,
		TickLowerIndex: tickLower,
		TickUpperIndex: tickUpper,
		TickArrayLower: arrayLower,
		TickArrayUpper: arrayUpper,
		PriceLower:     whirlpool.TickToPrice(tickLower, decimalsA, decimalsB),
		PriceUpper:     whirlpool.TickToPrice(tickUpper, decimalsA, decimalsB),
	}, nil
}

// tickArrayStarts – стартовые индексы массивов тиков позиции (без повторов)
func (p *PositionRecord) tickArrayStarts(tickSpacing uint16) []int32 {
	lower := whirlpool.TickArrayStartIndex(p.TickLowerIndex, tickSpacing)
	upper := whirlpool.TickArrayStartIndex(p.TickUpperIndex, tickSpacing)
	if lower == upper {
		return []int32{lower}
	}
	return []int32{lower, upper}
}
