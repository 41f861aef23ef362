// internal/vault/config.go
package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Config хранит параметры программы vault'а и возможности среды исполнения.
type Config struct {
	ProgramID     solana.PublicKey
	TreasuryOwner solana.PublicKey

	// CombineReinvestRebalance разрешает собирать reinvest и rebalance в одну
	// транзакцию. Зависит от compute-лимитов кластера.
	CombineReinvestRebalance bool
	ReinvestComputeUnits     uint32
}

// GetDefaultConfig возвращает конфигурацию для mainnet.
func GetDefaultConfig() *Config {
	return &Config{
		ProgramID:            ProgramID,
		TreasuryOwner:        DaoTreasuryOwner,
		ReinvestComputeUnits: DefaultReinvestComputeUnits,
	}
}

func (c *Config) validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("vault program id is not set")
	}
	if c.TreasuryOwner.IsZero() {
		return fmt.Errorf("treasury owner is not set")
	}
	return nil
}
