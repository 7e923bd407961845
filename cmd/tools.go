package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ehb/internal/adapters/http/api"
	app "github.com/okian/ehb/internal/app"
	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/loadgen"
	"github.com/okian/ehb/internal/domain/reward"
	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/pkg/logger"
)

const defaultTokenTTL = 24 * time.Hour

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rewardCmd() *cobra.Command {
	var (
		in    reward.Input
		stake float64
	)
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Calculate a validator reward offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stake") {
				in.StakedAmount = &stake
			}
			res, err := reward.NewCalculator(reward.WithBaseRate(cfg.RewardBaseRate)).Calculate(in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&in.ValidatorAddress, "address", "", "validator address (0x...)")
	cmd.Flags().StringVar(&in.SQLLevel, "level", "", "SQL level name or 1-5")
	cmd.Flags().StringVar(&in.FranchiseRole, "role", "", "franchise role: sub, master or corporate")
	cmd.Flags().IntVar(&in.LoyaltyYears, "years", 0, "loyalty years")
	cmd.Flags().Float64Var(&stake, "stake", 0, "staked amount")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject, level, role string
		ttl                  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for the authenticated routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.AuthSecret == "" {
				return errors.New("auth_secret is not configured")
			}
			lvl, err := tier.ParseLevel(level)
			if err != nil {
				return err
			}
			rl := tier.RoleUnknown
			if role != "" {
				if rl, err = tier.ParseRole(role); err != nil {
					return err
				}
			}
			token, err := api.NewAuthenticator([]byte(cfg.AuthSecret), cfg.AuthIssuer).Issue(subject, lvl, rl, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	cmd.Flags().StringVar(&level, "level", "Free", "SQL level")
	cmd.Flags().StringVar(&role, "role", "", "franchise role")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage stored franchise wallets",
	}
	cmd.AddCommand(walletSetCmd(), walletGetCmd())
	return cmd
}

// withService runs fn against a started service with notifications kept
// local.
func withService(ctx context.Context, fn func(*app.Service) error) (err error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	cfg.NATSURL = ""
	svc := app.New(serviceOptions(cfg, logger.Get())...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		err = errors.Join(err, svc.Stop(stopCtx))
	}()
	return fn(svc)
}

func walletSetCmd() *cobra.Command {
	var w model.Wallet
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace a wallet snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), func(svc *app.Service) error {
				stored, err := svc.UpsertWallet(cmd.Context(), w)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stored)
			})
		},
	}
	cmd.Flags().StringVar(&w.Address, "address", "", "wallet address (0x...)")
	cmd.Flags().Float64Var(&w.Balance, "balance", 0, "wallet balance")
	cmd.Flags().Float64Var(&w.LockedAmount, "locked", 0, "locked amount")
	cmd.Flags().IntVar(&w.LockDurationMonths, "months", 0, "lock duration in months")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func walletGetCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a wallet and its franchise earnings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), func(svc *app.Service) error {
				w, out, err := svc.WalletEarnings(cmd.Context(), address)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"wallet":   w,
					"earnings": out,
				})
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address (0x...)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func loadgenCmd() *cobra.Command {
	var lc loadgen.Config
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive a running server with concurrent moderation reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			lc.Secret = cfg.AuthSecret
			lc.Issuer = cfg.AuthIssuer
			if t, ok := cfg.ReportThresholds[lc.Kind]; ok {
				lc.Threshold = t
			} else {
				lc.Threshold = moderation.DefaultThresholds()[lc.Kind]
			}
			stats, err := loadgen.Run(cmd.Context(), lc)
			if perr := printJSON(cmd.OutOrStdout(), stats); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&lc.BaseURL, "url", "http://localhost:8080", "base URL of the service")
	cmd.Flags().StringVar(&lc.Kind, "kind", moderation.KindAd, "target kind: ad or video")
	cmd.Flags().IntVar(&lc.Targets, "targets", loadgen.DefaultTargets, "number of targets")
	cmd.Flags().IntVar(&lc.Reports, "reports", loadgen.DefaultReports, "distinct reporters per target")
	cmd.Flags().IntVar(&lc.Repeats, "repeats", 1, "duplicate submissions per target")
	cmd.Flags().IntVar(&lc.Workers, "workers", loadgen.DefaultWorkers, "concurrent requests")
	cmd.Flags().DurationVar(&lc.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	return cmd
}
