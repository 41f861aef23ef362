// internal/vault/tokens.go
package vault

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	ubin "github.com/rovshanmuradov/nazare-vault/internal/utils/binary"
)

const (
	tokenAccountSize  = 165
	tokenAmountOffset = 64
)

// TokenBalance – SPL token аккаунт
type TokenBalance struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

func decodeMint(data []byte) (*token.Mint, error) {
	var m token.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeTokenAccount(address solana.PublicKey, data []byte) (*TokenBalance, error) {
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("token account %s has %d bytes, want %d", address, len(data), tokenAccountSize)
	}
	return &TokenBalance{
		Address: address,
		Mint:    ubin.ReadPubKey(data, 0),
		Owner:   ubin.ReadPubKey(data, 32),
		Amount:  ubin.ReadUint64LittleEndian(data, tokenAmountOffset),
	}, nil
}

// fetchTokenBalances reads token accounts in one request. Missing accounts are
// reported with ErrAccountNotFound.
func fetchTokenBalances(ctx context.Context, fetcher AccountFetcher, addresses ...solana.PublicKey) ([]*TokenBalance, error) {
	data, err := fetcher.FetchAccounts(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token accounts: %w", err)
	}
	out := make([]*TokenBalance, len(addresses))
	for i, raw := range data {
		if raw == nil {
			return nil, fmt.Errorf("token account %s: %w", addresses[i], ErrAccountNotFound)
		}
		if out[i], err = decodeTokenAccount(addresses[i], raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}
