package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fantasycricket/internal/bootstrap"
	"github.com/okian/fantasycricket/internal/config"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/scoring"
	"github.com/okian/fantasycricket/internal/domain/stats"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	"github.com/okian/fantasycricket/internal/loadtest"
	"github.com/okian/fantasycricket/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fantasyctl",
		Short:        "Operate a fantasy cricket game",
		SilenceUsage: true,
		// Logs go to stderr so command output stays machine readable.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.InitWith(cmd.ErrOrStderr(), logger.FormatText)
		},
	}
	root.AddCommand(
		newImportCmd(),
		newValueCmd(),
		newLoadTestCmd(),
	)
	return root
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load seed players into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			cfg.ImportFile = ""

			a, err := bootstrap.Open(ctx, cfg, logger.Get().Named("fantasyctl"))
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.ImportFile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

type valueReport struct {
	Derived    stats.Derived      `json:"derived"`
	Components scoring.Components `json:"components"`
	Score      float64            `json:"score"`
	Price      valuation.Quote    `json:"price"`
}

func newValueCmd() *cobra.Command {
	var (
		name string
		raw  model.RawStats
	)
	cmd := &cobra.Command{
		Use:   "value",
		Short: "Show the derived stats, score and price for a stat line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if err := raw.Validate(); err != nil {
				return err
			}
			engine := valuation.New(
				valuation.WithFloor(cfg.ValueFloor),
				valuation.WithStep(cfg.ValueStep),
				valuation.WithOverrides(cfg.ValueOverrides),
			)
			d := stats.Derive(raw)
			c := scoring.Breakdown(d)
			return printJSON(cmd.OutOrStdout(), valueReport{
				Derived:    d,
				Components: c,
				Score:      c.Total,
				Price:      engine.Quote(model.Player{Name: strings.TrimSpace(name), Stats: raw}),
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "player name, consulted for value overrides")
	f.IntVar(&raw.TotalRuns, "runs", 0, "total runs scored")
	f.IntVar(&raw.BallsFaced, "balls", 0, "balls faced")
	f.IntVar(&raw.InningsPlayed, "innings", 0, "innings played")
	f.IntVar(&raw.Wickets, "wickets", 0, "wickets taken")
	f.Float64Var(&raw.OversBowled, "overs", 0, "overs bowled, e.g. 10.3")
	f.IntVar(&raw.RunsConceded, "conceded", 0, "runs conceded")
	return cmd
}

func newLoadTestCmd() *cobra.Command {
	cfg := &loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Register users against a running game, fill their rosters and check the books",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := loadtest.Run(cmd.Context(), cfg)
			if res != nil && res.Duration > 0 {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Users, "users", 100, "number of users to register")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.BoolVar(&cfg.Replay, "replay", true, "resend every add with the same Idempotency-Key")
	f.Uint64Var(&cfg.Seed, "seed", 0, "shuffle seed; 0 picks one from the clock")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every failed request")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
