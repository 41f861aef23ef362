package vault

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// MockFetcher – testify mock для AccountFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	args := m.Called(ctx, address)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockFetcher) FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([][]byte, error) {
	args := m.Called(ctx, addresses)
	data, _ := args.Get(0).([][]byte)
	return data, args.Error(1)
}

// memoryLedger – хранилище аккаунтов в памяти, считает чтения
type memoryLedger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	reads    map[solana.PublicKey]int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		accounts: make(map[solana.PublicKey][]byte),
		reads:    make(map[solana.PublicKey]int),
	}
}

func (l *memoryLedger) put(address solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = data
}

func (l *memoryLedger) readCount(address solana.PublicKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads[address]
}

func (l *memoryLedger) FetchAccount(_ context.Context, address solana.PublicKey) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads[address]++
	data, ok := l.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return append([]byte(nil), data...), nil
}

func (l *memoryLedger) FetchAccounts(_ context.Context, addresses []solana.PublicKey) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(addresses))
	for i, address := range addresses {
		l.reads[address]++
		if data, ok := l.accounts[address]; ok {
			out[i] = append([]byte(nil), data...)
		}
	}
	return out, nil
}

// testEnv – пул с минтами и наградами, загруженный в memoryLedger
type testEnv struct {
	ledger  *memoryLedger
	pool    solana.PublicKey
	state   *whirlpool.Pool
	mintA   solana.PublicKey
	mintB   solana.PublicKey
	rewards []solana.PublicKey
	user    solana.PublicKey
}

func newTestEnv(t *testing.T, rewardCount int) *testEnv {
	t.Helper()
	env := &testEnv{
		ledger: newMemoryLedger(),
		pool:   solana.NewWallet().PublicKey(),
		mintA:  solana.NewWallet().PublicKey(),
		mintB:  solana.NewWallet().PublicKey(),
		user:   solana.NewWallet().PublicKey(),
	}
	env.state = &whirlpool.Pool{
		WhirlpoolsConfig: solana.NewWallet().PublicKey(),
		WhirlpoolBump:    255,
		TickSpacing:      8,
		FeeRate:          500,
		Liquidity:        uint128.From64(5_000_000_000),
		SqrtPrice:        uint128.New(0, 1),
		TickCurrentIndex: 0,
		TokenMintA:       env.mintA,
		TokenVaultA:      solana.NewWallet().PublicKey(),
		TokenMintB:       env.mintB,
		TokenVaultB:      solana.NewWallet().PublicKey(),
	}
	for i := 0; i < rewardCount; i++ {
		mint := solana.NewWallet().PublicKey()
		env.rewards = append(env.rewards, mint)
		env.state.RewardInfos[i] = whirlpool.RewardInfo{
			Mint:      mint,
			Vault:     solana.NewWallet().PublicKey(),
			Authority: solana.NewWallet().PublicKey(),
		}
	}
	env.storePool(t)
	env.ledger.put(env.mintA, mintAccount(6))
	env.ledger.put(env.mintB, mintAccount(6))
	return env
}

func (e *testEnv) storePool(t *testing.T) {
	t.Helper()
	e.ledger.put(e.pool, encodeWhirlpool(t, e.state))
}

func (e *testEnv) id() VaultIdentity {
	return VaultIdentity{Pool: e.pool, Index: 0}
}

func (e *testEnv) assembler(t *testing.T, cfg *Config) *Assembler {
	t.Helper()
	a, err := NewAssembler(e.ledger, cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

// mintAccount – SPL mint без authority
func mintAccount(decimals uint8) []byte {
	data := make([]byte, 82)
	data[44] = decimals
	data[45] = 1
	return data
}

// tokenAccount – SPL token account
func tokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint.Bytes())
	copy(data[32:64], owner.Bytes())
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}

func discriminatorOf(t *testing.T, ix solana.Instruction) [8]byte {
	t.Helper()
	data, err := ix.Data()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 8)
	var d [8]byte
	copy(d[:], data[:8])
	return d
}

// encodeWhirlpool кладет пул в account layout Whirlpool
func encodeWhirlpool(t *testing.T, p *whirlpool.Pool) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{
		whirlpool.PoolDiscriminator,
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
		require.NoError(t, enc.Encode(f))
	}
	return buf.Bytes()
}

func encodeWhirlpoolPosition(t *testing.T, p *whirlpool.Position) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{
		whirlpool.PositionDiscriminator,
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
		require.NoError(t, enc.Encode(f))
	}
	return buf.Bytes()
}
