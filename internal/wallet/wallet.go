// internal/wallet/wallet.go
package wallet

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet – подписант vault-операций (payer и user_signer).
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey
}

func newWallet(key solana.PrivateKey) (*Wallet, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(key))
	}
	return &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return newWallet(solana.PrivateKey(raw))
}

// Load читает ключ из файла: JSON-массив solana-keygen или base58-строка.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair: %w", err)
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse keygen file: %w", err)
		}
		return newWallet(key)
	}
	return NewWallet(string(data))
}

// Generate создаёт одноразовый ключ (например, для минта позиции).
func Generate() *Wallet {
	w, _ := newWallet(solana.NewWallet().PrivateKey)
	return w
}

// GetATA возвращает адрес ATA кошелька для mint, с кешированием.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mint] = ata
	return ata, nil
}

// SignTransaction подписывает транзакцию ключом кошелька.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
