package vault

import (
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

func TestPlanTicksNarrowsToSpacing(t *testing.T) {
	pool := &PoolSnapshot{Address: solana.NewWallet().PublicKey(), TickSpacing: 8}

	lower, upper, err := PlanTicks(pool, decimal.RequireFromString("0.90"), decimal.RequireFromString("1.10"), 6, 6)
	require.NoError(t, err)

	assert.Equal(t, int32(-1048), lower)
	assert.Equal(t, int32(952), upper)
	assert.Zero(t, lower%8)
	assert.Zero(t, upper%8)

	rawLower, err := whirlpool.PriceToTick(decimal.RequireFromString("0.90"), 6, 6)
	require.NoError(t, err)
	rawUpper, err := whirlpool.PriceToTick(decimal.RequireFromString("1.10"), 6, 6)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, float64(lower), rawLower)
	assert.LessOrEqual(t, float64(upper), rawUpper)
}

func TestPlanTicksNeverWidens(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	spacings := []uint16{1, 8, 64, 128}

	for i := 0; i < 500; i++ {
		spacing := spacings[rng.Intn(len(spacings))]
		pool := &PoolSnapshot{TickSpacing: spacing}

		lowerF := 0.01 + rng.Float64()*100
		upperF := lowerF * (1.05 + rng.Float64())
		lowerPrice := decimal.NewFromFloat(lowerF)
		upperPrice := decimal.NewFromFloat(upperF)

		lower, upper, err := PlanTicks(pool, lowerPrice, upperPrice, 6, 6)
		require.NoError(t, err, "lower %s upper %s spacing %d", lowerPrice, upperPrice, spacing)

		rawLower, _ := whirlpool.PriceToTick(lowerPrice, 6, 6)
		rawUpper, _ := whirlpool.PriceToTick(upperPrice, 6, 6)
		assert.GreaterOrEqual(t, float64(lower), rawLower)
		assert.LessOrEqual(t, float64(upper), rawUpper)
		assert.Zero(t, lower%int32(spacing))
		assert.Zero(t, upper%int32(spacing))
		assert.Less(t, lower, upper)
	}
}

func TestPlanTicksInvalidRange(t *testing.T) {
	pool := &PoolSnapshot{TickSpacing: 64}

	tests := []struct {
		name         string
		lower, upper string
	}{
		{"inverted", "1.10", "0.90"},
		{"equal", "1", "1"},
		{"zero lower", "0", "1"},
		{"narrower than spacing", "1.0001", "1.0002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := PlanTicks(pool, decimal.RequireFromString(tt.lower), decimal.RequireFromString(tt.upper), 6, 6)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestPlanPositionAddresses(t *testing.T) {
	cfg := GetDefaultConfig()
	pool := &PoolSnapshot{Address: solana.NewWallet().PublicKey(), TickSpacing: 8}
	keys, err := DeriveVaultKeys(cfg, VaultIdentity{Pool: pool.Address}, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	positionMint := solana.NewWallet().PublicKey()

	rec, err := PlanPosition(keys, pool, positionMint, decimal.RequireFromString("0.90"), decimal.RequireFromString("1.10"), 6, 6)
	require.NoError(t, err)

	address, bump, err := whirlpool.PositionAddress(positionMint)
	require.NoError(t, err)
	assert.Equal(t, address, rec.Address)
	assert.Equal(t, bump, rec.Bump)

	tokenAccount, _, err := solana.FindAssociatedTokenAddress(keys.VaultAccount, positionMint)
	require.NoError(t, err)
	assert.Equal(t, tokenAccount, rec.TokenAccount)

	lowerArray, err := whirlpool.TickArrayAddress(pool.Address, -1408)
	require.NoError(t, err)
	upperArray, err := whirlpool.TickArrayAddress(pool.Address, 704)
	require.NoError(t, err)
	assert.Equal(t, lowerArray, rec.TickArrayLower)
	assert.Equal(t, upperArray, rec.TickArrayUpper)

	assert.True(t, rec.PriceLower.GreaterThanOrEqual(decimal.RequireFromString("0.90")))
	assert.True(t, rec.PriceUpper.LessThanOrEqual(decimal.RequireFromString("1.10")))
	assert.Equal(t, []int32{-1408, 704}, rec.tickArrayStarts(pool.TickSpacing))
}
