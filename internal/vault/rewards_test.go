package vault

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// addMarketPool кладет в ledger пул reward/mintA для обмена наград
func (e *testEnv) addMarketPool(t *testing.T, rewardMint solana.PublicKey) solana.PublicKey {
	t.Helper()
	address := solana.NewWallet().PublicKey()
	market := &whirlpool.Pool{
		TickSpacing:      64,
		SqrtPrice:        uint128.New(0, 1),
		TickCurrentIndex: 100,
		TokenMintA:       rewardMint,
		TokenVaultA:      solana.NewWallet().PublicKey(),
		TokenMintB:       e.mintA,
		TokenVaultB:      solana.NewWallet().PublicKey(),
	}
	data := encodeWhirlpool(t, market)
	e.ledger.put(address, data)
	return address
}

func TestSetRouteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 2)
	a := env.assembler(t, nil)
	params := SetRouteParams{
		Vault:       env.id(),
		UserSigner:  env.user,
		RewardIndex: 1,
		Kind:        RouteDirectTransfer,
		Destination: solana.NewWallet().PublicKey(),
	}

	first, err := a.SetRewardRoute(context.Background(), params)
	require.NoError(t, err)
	second, err := a.SetRewardRoute(context.Background(), params)
	require.NoError(t, err)

	firstData, err := first.Data()
	require.NoError(t, err)
	secondData, err := second.Data()
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData)
	assert.Equal(t, first.Accounts(), second.Accounts())
	assert.Equal(t, setMarketRewardsDiscriminator, discriminatorOf(t, first))
	assert.Equal(t, []byte{uint8(RouteDirectTransfer), 0, 0, 0, 0, 0, 0, 0, 0}, firstData[8:])

	rec, ok := a.Router().Route(env.id(), 1)
	require.True(t, ok)
	assert.Equal(t, params.Destination, rec.Destination)
}

func TestSetRouteValidation(t *testing.T) {
	env := newTestEnv(t, 2)
	a := env.assembler(t, nil)
	ctx := context.Background()
	base := SetRouteParams{
		Vault:       env.id(),
		UserSigner:  env.user,
		Kind:        RouteSwapOnAmm,
		Destination: solana.NewWallet().PublicKey(),
		MarketPool:  solana.NewWallet().PublicKey(),
	}

	p := base
	p.RewardIndex = 3
	p.MinimumAmountOut = 1
	_, err := a.SetRewardRoute(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidRewardIndex)
	assert.Zero(t, env.ledger.readCount(env.pool), "local validation happens before any read")

	p = base
	p.MinimumAmountOut = 0
	_, err = a.SetRewardRoute(ctx, p)
	assert.ErrorIs(t, err, ErrMissingSwapParameter)

	p = base
	p.MinimumAmountOut = 10
	p.MarketPool = solana.PublicKey{}
	_, err = a.SetRewardRoute(ctx, p)
	assert.ErrorIs(t, err, ErrMissingSwapParameter)

	p = base
	p.MinimumAmountOut = 10
	p.RewardIndex = 2
	_, err = a.SetRewardRoute(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidRewardIndex, "slot 2 has no reward mint")

	p = base
	p.Kind = RouteDirectTransfer
	p.Destination = solana.PublicKey{}
	_, err = a.SetRewardRoute(ctx, p)
	assert.ErrorIs(t, err, ErrMissingAccount)

	_, ok := a.Router().Route(env.id(), 0)
	assert.False(t, ok, "rejected routes are not recorded")
}

func TestBuildInstructionsRequireRoutes(t *testing.T) {
	env := newTestEnv(t, 2)
	a := env.assembler(t, nil)
	ctx := context.Background()

	_, err := a.TransferRewards(ctx, env.id())
	assert.ErrorIs(t, err, ErrRouteNotConfigured)
	_, err = a.SwapRewards(ctx, env.id(), env.user)
	assert.ErrorIs(t, err, ErrRouteNotConfigured)

	require.NoError(t, a.Router().SeedRoutes(env.id(), RewardRouteRecord{
		RewardIndex: 0, Kind: RouteDirectTransfer, Destination: solana.NewWallet().PublicKey(),
	}))
	_, err = a.TransferRewards(ctx, env.id())
	assert.ErrorIs(t, err, ErrRouteNotConfigured, "slot 1 is still unrouted")
}

func TestBuildRewardInstructions(t *testing.T) {
	env := newTestEnv(t, 2)
	a := env.assembler(t, nil)
	ctx := context.Background()

	keys, err := a.Cache().VaultKeys(ctx, env.id())
	require.NoError(t, err)
	market := env.addMarketPool(t, env.rewards[0])
	treasury := solana.NewWallet().PublicKey()

	require.NoError(t, a.Router().SeedRoutes(env.id(),
		RewardRouteRecord{
			RewardIndex:      0,
			Kind:             RouteSwapOnAmm,
			Destination:      keys.VaultInputTokenA,
			MinimumAmountOut: 25,
			MarketPool:       market,
		},
		RewardRouteRecord{RewardIndex: 1, Kind: RouteDirectTransfer, Destination: treasury},
	))

	swaps, err := a.SwapRewards(ctx, env.id(), env.user)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, swapRewardsDiscriminator, discriminatorOf(t, swaps[0]))

	data, err := swaps[0].Data()
	require.NoError(t, err)
	assert.Len(t, data, 8, "swap_rewards carries no arguments")

	accounts := swaps[0].Accounts()
	require.Len(t, accounts, 13)
	rewardsToken, err := keys.RewardTokenAccount(env.rewards[0])
	require.NoError(t, err)
	assert.Equal(t, rewardsToken, accounts[2].PublicKey)
	assert.Equal(t, keys.VaultInputTokenA, accounts[3].PublicKey)
	assert.Equal(t, market, accounts[6].PublicKey)

	// награда – токен A рыночного пула, обмен идет A -> B, массивы тиков вниз
	wantArrays, err := whirlpool.TickArrayAddressesForSwap(market, 100, 64, true)
	require.NoError(t, err)
	assert.Equal(t, wantArrays[0], accounts[9].PublicKey)
	assert.Equal(t, wantArrays[2], accounts[11].PublicKey)
	assert.Equal(t, 2, env.ledger.readCount(env.pool), "swap building refreshes the vault pool")

	transfers, err := a.TransferRewards(ctx, env.id())
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, transferRewardsDiscriminator, discriminatorOf(t, transfers[0]))
	assert.Equal(t, treasury, transfers[0].Accounts()[2].PublicKey)
}

func TestSwapRewardsRejectsForeignMarket(t *testing.T) {
	env := newTestEnv(t, 1)
	a := env.assembler(t, nil)
	ctx := context.Background()

	keys, err := a.Cache().VaultKeys(ctx, env.id())
	require.NoError(t, err)
	market := env.addMarketPool(t, solana.NewWallet().PublicKey())

	require.NoError(t, a.Router().SeedRoutes(env.id(), RewardRouteRecord{
		RewardIndex: 0, Kind: RouteSwapOnAmm, Destination: keys.VaultInputTokenA, MinimumAmountOut: 1, MarketPool: market,
	}))
	_, err = a.SwapRewards(ctx, env.id(), env.user)
	assert.ErrorIs(t, err, ErrWrongMint)
}
