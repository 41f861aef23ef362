// cmd/vaultctl/commands.go
package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/nazare-vault/internal/vault"
	"github.com/rovshanmuradov/nazare-vault/internal/wallet"
)

// vaultCmd – команда, которой нужен app и vault из конфигурации
type vaultCmd func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "vaultctl",
		Short:        "Build, simulate and send liquidity vault operations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.StringSlice("rpc", nil, "RPC URLs (comma-separated)")
	flags.String("keypair", "", "payer keypair file (solana-keygen JSON or base58)")
	flags.String("pool", "", "Whirlpool address of the vault")
	flags.Uint8("index", 0, "vault index on the pool")
	flags.String("commitment", "", "processed, confirmed or finalized")
	flags.Uint64("priority-fee", 0, "compute unit price in micro-lamports")
	flags.Bool("debug", false, "debug logging")
	flags.Bool("simulate", false, "simulate the transaction instead of printing instructions")
	flags.Bool("send", false, "send the transaction and wait for confirmation")
	root.MarkFlagsMutuallyExclusive("simulate", "send")

	for key, flag := range map[string]string{
		"rpc_list":      "rpc",
		"keypair_path":  "keypair",
		"vault.pool":    "pool",
		"vault.index":   "index",
		"commitment":    "commitment",
		"priority_fee":  "priority-fee",
		"debug_logging": "debug",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	withApp := func(fn vaultCmd) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			id, err := a.requireVault()
			if err != nil {
				return err
			}
			return fn(cmd, a, id)
		}
	}

	root.AddCommand(
		initCmd(withApp),
		openPositionCmd(withApp),
		positionCmd(withApp),
		liquidityCmd("deposit", "Deposit tokens for LP shares", withApp),
		liquidityCmd("withdraw", "Burn LP shares for tokens", withApp),
		rebalanceCmd(withApp),
		positionOpCmd("reinvest", "Reinvest collected fees into the position", withApp),
		positionOpCmd("collect-fees", "Collect position fees into the vault", withApp),
		positionOpCmd("collect-rewards", "Collect position rewards into the vault", withApp),
		positionOpCmd("close-position", "Close an emptied position", withApp),
		rewardsCmd("swap-rewards", "Swap collected rewards through their market pools", withApp),
		rewardsCmd("transfer-rewards", "Transfer collected rewards to their destinations", withApp),
		setRouteCmd(withApp),
		setFeeCmd(withApp),
		pauseCmd(withApp),
		setMinSlotsCmd(withApp),
	)
	return root
}

type appWrapper func(vaultCmd) func(*cobra.Command, []string) error

func initCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a vault with its LP mint and token accounts",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			fee := a.cfg.Vault.Fee
			if cmd.Flags().Changed("fee") {
				fee, _ = cmd.Flags().GetUint64("fee")
			}
			routes, err := a.cfg.Routes()
			if err != nil {
				return err
			}
			ixs, err := a.asm.InitializeVault(cmd.Context(), vault.InitializeVaultParams{
				Pool:       id.Pool,
				Index:      id.Index,
				UserSigner: a.wallet.PublicKey,
				Fee:        fee,
				Routes:     routes,
			})
			if err != nil {
				return err
			}
			op := vault.Operation{Name: "initialize_vault", Instructions: ixs, Budget: a.budget(false)}
			return a.runThen(cmd.Context(), op, func() error {
				return a.asm.Router().SeedRoutes(id, routes...)
			})
		}),
		Annotations: map[string]string{annotationCreatesVault: "true"},
	}
	cmd.Flags().Uint64("fee", 0, "vault fee (0-100), overrides vault.fee")
	return cmd
}

func openPositionCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-position",
		Short: "Open a position for a price range",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			lower, err := decimalFlag(cmd, "lower")
			if err != nil {
				return err
			}
			upper, err := decimalFlag(cmd, "upper")
			if err != nil {
				return err
			}
			mint := wallet.Generate()
			res, err := a.asm.OpenPosition(cmd.Context(), vault.OpenPositionParams{
				Vault:        id,
				LowerPrice:   lower,
				UpperPrice:   upper,
				PositionMint: mint.PublicKey,
				UserSigner:   a.wallet.PublicKey,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "position mint %s, ticks [%d, %d]\n",
				mint.PublicKey, res.Position.TickLowerIndex, res.Position.TickUpperIndex)
			return a.run(cmd.Context(), vault.Operation{
				Name:         "open_position",
				Instructions: res.Instructions,
				Signers:      []solana.PrivateKey{mint.PrivateKey},
				Budget:       a.budget(false),
			})
		}),
	}
	cmd.Flags().String("lower", "", "lower price (token B per token A)")
	cmd.Flags().String("upper", "", "upper price (token B per token A)")
	_ = cmd.MarkFlagRequired("lower")
	_ = cmd.MarkFlagRequired("upper")
	return cmd
}

func positionCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Show a position's range and owed amounts",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			mint, _ := cmd.Flags().GetString("position-mint")
			rec, err := a.loadPosition(cmd.Context(), id, mint)
			if err != nil {
				return err
			}
			state, err := a.asm.FetchPosition(cmd.Context(), rec.Mint)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"address":      rec.Address.String(),
				"tick_lower":   rec.TickLowerIndex,
				"tick_upper":   rec.TickUpperIndex,
				"price_lower":  rec.PriceLower.String(),
				"price_upper":  rec.PriceUpper.String(),
				"liquidity":    state.Liquidity.String(),
				"fee_owed_a":   state.FeeOwedA,
				"fee_owed_b":   state.FeeOwedB,
				"rewards_owed": state.RewardsOwed,
				"empty":        state.Empty,
			})
		}),
	}
	positionMintFlag(cmd)
	return cmd
}

func liquidityCmd(name, short string, withApp appWrapper) *cobra.Command {
	deposit := name == "deposit"
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			mint, _ := cmd.Flags().GetString("position-mint")
			rec, err := a.loadPosition(cmd.Context(), id, mint)
			if err != nil {
				return err
			}
			lp, _ := cmd.Flags().GetUint64("lp")
			amountA, _ := cmd.Flags().GetUint64("amount-a")
			amountB, _ := cmd.Flags().GetUint64("amount-b")
			p := vault.LiquidityParams{
				Vault:      id,
				Position:   rec,
				LpAmount:   lp,
				AmountA:    amountA,
				AmountB:    amountB,
				UserSigner: a.wallet.PublicKey,
			}
			var ix solana.Instruction
			if deposit {
				ix, err = a.asm.Deposit(cmd.Context(), p)
			} else {
				ix, err = a.asm.Withdraw(cmd.Context(), p)
			}
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: name, Instructions: []solana.Instruction{ix}, Budget: a.budget(false)})
		}),
	}
	positionMintFlag(cmd)
	cmd.Flags().Uint64("lp", 0, "LP token amount")
	bound := "maximum"
	if !deposit {
		bound = "minimum"
	}
	cmd.Flags().Uint64("amount-a", 0, bound+" token A amount")
	cmd.Flags().Uint64("amount-b", 0, bound+" token B amount")
	_ = cmd.MarkFlagRequired("lp")
	return cmd
}

func rebalanceCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Move vault liquidity into another opened position",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			currentMint, _ := cmd.Flags().GetString("position-mint")
			newMint, _ := cmd.Flags().GetString("new-position-mint")
			current, err := a.loadPosition(cmd.Context(), id, currentMint)
			if err != nil {
				return err
			}
			next, err := a.loadPosition(cmd.Context(), id, newMint)
			if err != nil {
				return err
			}
			p := vault.RebalanceParams{Vault: id, Current: current, New: next, UserSigner: a.wallet.PublicKey}

			if withReinvest, _ := cmd.Flags().GetBool("reinvest"); withReinvest {
				ixs, err := a.asm.ReinvestAndRebalance(cmd.Context(), p)
				if err != nil {
					return err
				}
				// лимит уже внутри ixs
				return a.run(cmd.Context(), vault.Operation{Name: "reinvest_rebalance", Instructions: ixs, Budget: a.budget(false)})
			}
			ix, err := a.asm.Rebalance(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: "rebalance", Instructions: []solana.Instruction{ix}, Budget: a.budget(true)})
		}),
	}
	positionMintFlag(cmd)
	cmd.Flags().String("new-position-mint", "", "mint of the position receiving liquidity")
	cmd.Flags().Bool("reinvest", false, "reinvest in the same transaction (needs combine_reinvest_rebalance)")
	_ = cmd.MarkFlagRequired("new-position-mint")
	return cmd
}

// positionOpCmd – операции над одной позицией: reinvest, collect-fees, collect-rewards, close-position
func positionOpCmd(name, short string, withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			mint, _ := cmd.Flags().GetString("position-mint")
			rec, err := a.loadPosition(cmd.Context(), id, mint)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			user := a.wallet.PublicKey

			var (
				ixs   []solana.Instruction
				ix    solana.Instruction
				heavy bool
			)
			switch name {
			case "reinvest":
				ix, err = a.asm.Reinvest(ctx, id, rec)
				heavy = true
			case "collect-fees":
				ix, err = a.asm.CollectFees(ctx, id, rec, user)
			case "collect-rewards":
				ixs, err = a.asm.CollectRewards(ctx, id, rec, user)
			case "close-position":
				ix, err = a.asm.ClosePosition(ctx, id, rec, user)
			}
			if err != nil {
				return err
			}
			if ix != nil {
				ixs = []solana.Instruction{ix}
			}
			return a.run(ctx, vault.Operation{Name: name, Instructions: ixs, Budget: a.budget(heavy)})
		}),
	}
	positionMintFlag(cmd)
	return cmd
}

func rewardsCmd(name, short string, withApp appWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			var (
				ixs []solana.Instruction
				err error
			)
			if name == "swap-rewards" {
				ixs, err = a.asm.SwapRewards(cmd.Context(), id, a.wallet.PublicKey)
			} else {
				ixs, err = a.asm.TransferRewards(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			if len(ixs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no routed rewards")
				return nil
			}
			return a.run(cmd.Context(), vault.Operation{Name: name, Instructions: ixs, Budget: a.budget(false)})
		}),
	}
}

func setRouteCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-route",
		Short: "Configure what happens to one reward slot",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			index, _ := cmd.Flags().GetUint8("reward-index")
			kindStr, _ := cmd.Flags().GetString("kind")
			minOut, _ := cmd.Flags().GetUint64("min-out")
			kind, err := vault.ParseRouteKind(kindStr)
			if err != nil {
				return err
			}
			dest, err := optionalKeyFlag(cmd, "destination")
			if err != nil {
				return err
			}
			market, err := optionalKeyFlag(cmd, "market-pool")
			if err != nil {
				return err
			}
			ix, err := a.asm.SetRewardRoute(cmd.Context(), vault.SetRouteParams{
				Vault:            id,
				UserSigner:       a.wallet.PublicKey,
				RewardIndex:      index,
				Kind:             kind,
				Destination:      dest,
				MinimumAmountOut: minOut,
				MarketPool:       market,
			})
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: "set_market_rewards", Instructions: []solana.Instruction{ix}, Budget: a.budget(false)})
		}),
	}
	cmd.Flags().Uint8("reward-index", 0, "reward slot (0-2)")
	cmd.Flags().String("kind", "", "transfer or swap")
	cmd.Flags().String("destination", "", "destination token account")
	cmd.Flags().Uint64("min-out", 0, "minimum swap output")
	cmd.Flags().String("market-pool", "", "Whirlpool used for the swap")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func setFeeCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-fee",
		Short: "Change the vault fee",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			fee, _ := cmd.Flags().GetUint64("fee")
			ix, err := a.asm.SetVaultFee(cmd.Context(), id, fee, a.wallet.PublicKey)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: "set_vault_fee", Instructions: []solana.Instruction{ix}, Budget: a.budget(false)})
		}),
	}
	cmd.Flags().Uint64("fee", 0, "vault fee (0-100)")
	_ = cmd.MarkFlagRequired("fee")
	return cmd
}

func pauseCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause or resume the vault",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			resume, _ := cmd.Flags().GetBool("resume")
			ix, err := a.asm.SetVaultPauseStatus(cmd.Context(), id, !resume, a.wallet.PublicKey)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: "set_vault_pause_status", Instructions: []solana.Instruction{ix}, Budget: a.budget(false)})
		}),
	}
	cmd.Flags().Bool("resume", false, "unpause instead")
	return cmd
}

func setMinSlotsCmd(withApp appWrapper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-min-slots",
		Short: "Set the minimum slots between reinvests",
		RunE: withApp(func(cmd *cobra.Command, a *app, id vault.VaultIdentity) error {
			slots, _ := cmd.Flags().GetUint64("slots")
			ix, err := a.asm.SetMinSlotsForReinvest(cmd.Context(), id, slots, a.wallet.PublicKey)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), vault.Operation{Name: "set_min_slots_for_reinvest", Instructions: []solana.Instruction{ix}, Budget: a.budget(false)})
		}),
	}
	cmd.Flags().Uint64("slots", 0, "slot count")
	_ = cmd.MarkFlagRequired("slots")
	return cmd
}

func positionMintFlag(cmd *cobra.Command) {
	cmd.Flags().String("position-mint", "", "position mint address")
	_ = cmd.MarkFlagRequired("position-mint")
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	s, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

func optionalKeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return key, nil
}
