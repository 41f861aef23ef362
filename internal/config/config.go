// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/nazare-vault/internal/vault"
)

const EnvPrefix = "NAZARE_VAULT"

type RewardRoute struct {
	Index        uint8  `mapstructure:"index"`
	Kind         string `mapstructure:"kind"`
	Destination  string `mapstructure:"destination"`
	MinAmountOut uint64 `mapstructure:"min_amount_out"`
	MarketPool   string `mapstructure:"market_pool"`
}

type VaultSection struct {
	Pool  string `mapstructure:"pool"`
	Index uint8  `mapstructure:"index"`
	Fee   uint64 `mapstructure:"fee"`
}

type Config struct {
	RPCList        []string      `mapstructure:"rpc_list"`
	Commitment     string        `mapstructure:"commitment"`
	VaultProgramID string        `mapstructure:"vault_program_id"`
	TreasuryOwner  string        `mapstructure:"treasury_owner"`
	KeypairPath    string        `mapstructure:"keypair_path"`
	DebugLogging   bool          `mapstructure:"debug_logging"`
	LogFile        string        `mapstructure:"log_file"`
	Retries        int           `mapstructure:"retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ComputeUnits   uint32        `mapstructure:"compute_units"`
	PriorityFee    uint64        `mapstructure:"priority_fee"`

	CombineReinvestRebalance bool `mapstructure:"combine_reinvest_rebalance"`

	Vault        VaultSection  `mapstructure:"vault"`
	RewardRoutes []RewardRoute `mapstructure:"reward_routes"`
}

const (
	DefaultCommitment     = "confirmed"
	DefaultRetries        = 3
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultLogFile        = "vaultctl.log"
)

// Defaults используются и LoadConfig, и cobra-флагами.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_list":         []string{solanarpc.MainNetBeta_RPC},
		"commitment":       DefaultCommitment,
		"vault_program_id": vault.ProgramID.String(),
		"treasury_owner":   vault.DaoTreasuryOwner.String(),
		"log_file":         DefaultLogFile,
		"retries":          DefaultRetries,
		"retry_delay":      DefaultRetryDelay,
		"request_timeout":  DefaultRequestTimeout,
		"compute_units":    vault.DefaultReinvestComputeUnits,
		"keypair_path":     "",
		"debug_logging":    false,
		"priority_fee":     0,
		"vault.pool":       "",
		"vault.index":      0,
		"vault.fee":        0,

		"combine_reinvest_rebalance": false,
	}
}

// LoadConfig читает файл (если задан), применяет env и проверяет результат.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	return Load(v, path != "")
}

// Load работает с уже настроенным viper (флаги CLI привязываются снаружи).
func Load(v *viper.Viper, readFile bool) (*Config, error) {
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}
	if readFile {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	loadEnvironmentVariables(&cfg)

	return &cfg, validateConfig(&cfg)
}

// значения из env приходят одной строкой через запятую, с пробелами
func loadEnvironmentVariables(cfg *Config) {
	envRPCList, ok := os.LookupEnv(EnvPrefix + "_RPC_LIST")
	if !ok {
		return
	}
	var clean []string
	for _, u := range strings.Split(envRPCList, ",") {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) > 0 {
		cfg.RPCList = clean
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	if _, err := solana.PublicKeyFromBase58(cfg.VaultProgramID); err != nil {
		return fmt.Errorf("invalid vault_program_id: %w", err)
	}
	if _, err := solana.PublicKeyFromBase58(cfg.TreasuryOwner); err != nil {
		return fmt.Errorf("invalid treasury_owner: %w", err)
	}
	if cfg.Vault.Pool != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.Vault.Pool); err != nil {
			return fmt.Errorf("invalid vault.pool: %w", err)
		}
	}
	if cfg.Vault.Fee > vault.FeeScale {
		return fmt.Errorf("vault.fee %d exceeds %d", cfg.Vault.Fee, vault.FeeScale)
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	for i, r := range cfg.RewardRoutes {
		if _, err := r.record(); err != nil {
			return fmt.Errorf("reward_routes[%d]: %w", i, err)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryDelay < 0 {
		return errors.New("invalid retry_delay")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("invalid request_timeout")
	}
	if cfg.ComputeUnits > 1_400_000 {
		return errors.New("compute_units above the cluster limit")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func optionalKey(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func (r RewardRoute) record() (vault.RewardRouteRecord, error) {
	kind, err := vault.ParseRouteKind(r.Kind)
	if err != nil {
		return vault.RewardRouteRecord{}, err
	}
	dest, err := optionalKey(r.Destination)
	if err != nil {
		return vault.RewardRouteRecord{}, fmt.Errorf("invalid destination: %w", err)
	}
	market, err := optionalKey(r.MarketPool)
	if err != nil {
		return vault.RewardRouteRecord{}, fmt.Errorf("invalid market_pool: %w", err)
	}
	if r.Index >= vault.NumRewardSlots {
		return vault.RewardRouteRecord{}, vault.ErrInvalidRewardIndex
	}
	return vault.RewardRouteRecord{
		RewardIndex:      r.Index,
		Kind:             kind,
		Destination:      dest,
		MinimumAmountOut: r.MinAmountOut,
		MarketPool:       market,
	}, nil
}

// Routes возвращает маршруты наград в виде записей vault.
func (c *Config) Routes() ([]vault.RewardRouteRecord, error) {
	out := make([]vault.RewardRouteRecord, 0, len(c.RewardRoutes))
	for _, r := range c.RewardRoutes {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// VaultConfig собирает vault.Config из параметров программы.
func (c *Config) VaultConfig() (*vault.Config, error) {
	programID, err := solana.PublicKeyFromBase58(c.VaultProgramID)
	if err != nil {
		return nil, err
	}
	treasury, err := solana.PublicKeyFromBase58(c.TreasuryOwner)
	if err != nil {
		return nil, err
	}
	cfg := vault.GetDefaultConfig()
	cfg.ProgramID = programID
	cfg.TreasuryOwner = treasury
	cfg.CombineReinvestRebalance = c.CombineReinvestRebalance
	if c.ComputeUnits > 0 {
		cfg.ReinvestComputeUnits = c.ComputeUnits
	}
	return cfg, nil
}

// Identity возвращает vault из секции vault; пул может переопределяться флагом.
func (c *Config) Identity() (vault.VaultIdentity, error) {
	if c.Vault.Pool == "" {
		return vault.VaultIdentity{}, errors.New("vault.pool is not set")
	}
	pool, err := solana.PublicKeyFromBase58(c.Vault.Pool)
	if err != nil {
		return vault.VaultIdentity{}, fmt.Errorf("invalid vault.pool: %w", err)
	}
	return vault.VaultIdentity{Pool: pool, Index: c.Vault.Index}, nil
}

func (c *Config) RPCOptions() rpc.Options {
	return rpc.Options{
		MaxRetries: uint(c.Retries),
		RetryDelay: c.RetryDelay,
		Timeout:    c.RequestTimeout,
	}
}

func (c *Config) CommitmentType() solanarpc.CommitmentType {
	return solanarpc.CommitmentType(c.Commitment)
}
