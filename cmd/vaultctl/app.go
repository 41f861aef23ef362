// cmd/vaultctl/app.go
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/programs/computebudget"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc"
	"github.com/rovshanmuradov/nazare-vault/internal/config"
	"github.com/rovshanmuradov/nazare-vault/internal/logger"
	"github.com/rovshanmuradov/nazare-vault/internal/vault"
	"github.com/rovshanmuradov/nazare-vault/internal/wallet"
)

// runMode – что делать с собранной операцией
type runMode int

const (
	modeDryRun runMode = iota
	modeSimulate
	modeSend
)

// app – зависимости одной команды CLI
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *solbc.Client
	asm      *vault.Assembler
	exec     *vault.Executor
	wallet   *wallet.Wallet
	identity vault.VaultIdentity
	mode     runMode
	out      io.Writer
}

func newApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, cfgFile != "")
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	if cfg.KeypairPath == "" {
		return nil, errors.New("keypair_path is not set")
	}
	w, err := wallet.Load(cfg.KeypairPath)
	if err != nil {
		return nil, err
	}

	client, err := solbc.NewClient(cfg.RPCList, cfg.RPCOptions(), cfg.CommitmentType(), log.Logger)
	if err != nil {
		return nil, err
	}
	vcfg, err := cfg.VaultConfig()
	if err != nil {
		return nil, err
	}
	asm, err := vault.NewAssembler(client, vcfg, log.Logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		client: client,
		asm:    asm,
		exec:   vault.NewExecutor(client, vcfg, cfg.CommitmentType(), log.Logger),
		wallet: w,
		out:    cmd.OutOrStdout(),
	}

	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		a.mode = modeSimulate
	}
	if send, _ := cmd.Flags().GetBool("send"); send {
		a.mode = modeSend
	}

	if cfg.Vault.Pool != "" {
		if a.identity, err = cfg.Identity(); err != nil {
			return nil, err
		}
	}
	if cfg.Vault.Pool != "" && routesOnChain(cmd) {
		routes, err := cfg.Routes()
		if err != nil {
			return nil, err
		}
		if err := asm.Router().SeedRoutes(a.identity, routes...); err != nil {
			return nil, fmt.Errorf("invalid reward route in config: %w", err)
		}
	}
	return a, nil
}

// annotationCreatesVault помечает команды, после которых маршруты из конфига появляются
// on-chain только по подтверждении транзакции
const annotationCreatesVault = "creates_vault"

// routesOnChain reports whether the configured routes already exist on chain for cmd.
func routesOnChain(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationCreatesVault] != "true"
}

func (a *app) requireVault() (vault.VaultIdentity, error) {
	if a.identity.Pool.IsZero() {
		return vault.VaultIdentity{}, errors.New("vault pool is not set (use --pool or vault.pool)")
	}
	return a.identity, nil
}

func (a *app) loadPosition(ctx context.Context, id vault.VaultIdentity, mint string) (*vault.PositionRecord, error) {
	key, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid position mint: %w", err)
	}
	return a.asm.LoadPosition(ctx, id, key)
}

// budget: priority fee всегда, лимит только для тяжелых операций
func (a *app) budget(heavy bool) computebudget.Config {
	b := computebudget.Config{MicroLamports: a.cfg.PriorityFee}
	if heavy {
		b.Units = a.cfg.ComputeUnits
	}
	return b
}

// run исполняет операцию в выбранном режиме. Без --simulate/--send только печатает инструкции.
func (a *app) run(ctx context.Context, op vault.Operation) error {
	return a.runThen(ctx, op, nil)
}

// runThen is run with a hook that fires only after the transaction is confirmed.
func (a *app) runThen(ctx context.Context, op vault.Operation, confirmed func() error) error {
	op.Signers = append([]solana.PrivateKey{a.wallet.PrivateKey}, op.Signers...)
	defer a.log.TrackPerformance(op.Name)()
	opLog := a.log.WithOperation(op.Name)

	switch a.mode {
	case modeSimulate:
		res, err := a.exec.Simulate(ctx, op)
		if err != nil {
			return describe(err)
		}
		opLog.Info("Simulation succeeded", zap.Uint64("units_consumed", res.UnitsConsumed))
		return a.print(map[string]interface{}{
			"operation":      op.Name,
			"units_consumed": res.UnitsConsumed,
			"logs":           res.Logs,
		})
	case modeSend:
		sig, err := a.exec.Execute(ctx, op)
		if err != nil {
			return describe(err)
		}
		a.log.WithTransaction(sig).Info("Operation confirmed", zap.String("operation", op.Name))
		if confirmed != nil {
			if err := confirmed(); err != nil {
				return fmt.Errorf("%s confirmed as %s: %w", op.Name, sig, err)
			}
		}
		return a.print(map[string]string{"operation": op.Name, "signature": sig.String()})
	default:
		return a.print(map[string]interface{}{
			"operation":    op.Name,
			"instructions": summarize(op.Instructions),
		})
	}
}

func describe(err error) error {
	var pe *vault.ProgramError
	if errors.As(err, &pe) && pe.Retryable() {
		return fmt.Errorf("%w (retry later)", err)
	}
	return err
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type accountView struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer,omitempty"`
	Writable bool   `json:"writable,omitempty"`
}

type instructionView struct {
	Program  string        `json:"program"`
	Accounts []accountView `json:"accounts"`
	Data     string        `json:"data"`
	Error    string        `json:"error,omitempty"`
}

func summarize(ixs []solana.Instruction) []instructionView {
	out := make([]instructionView, 0, len(ixs))
	for _, ix := range ixs {
		view := instructionView{Program: ix.ProgramID().String()}
		for _, m := range ix.Accounts() {
			view.Accounts = append(view.Accounts, accountView{
				Pubkey:   m.PublicKey.String(),
				Signer:   m.IsSigner,
				Writable: m.IsWritable,
			})
		}
		data, err := ix.Data()
		if err != nil {
			view.Error = err.Error()
		}
		view.Data = base64.StdEncoding.EncodeToString(data)
		out = append(out, view)
	}
	return out
}
