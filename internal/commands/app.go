package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/teller/internal/config"
	"github.com/cleared-dev/teller/internal/logging"
	"github.com/cleared-dev/teller/internal/pin"
	"github.com/cleared-dev/teller/internal/store"
	"github.com/cleared-dev/teller/internal/teller"
)

// app wires the core for a single command invocation.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *store.Store
	teller *teller.Teller
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Store.Path = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	v, err := pin.New(cfg.Auth.PinScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.Store.Path, store.Options{BusyTimeout: cfg.Store.BusyTimeout})
	if err != nil {
		return nil, err
	}

	t := teller.New(s, v, teller.Options{
		Denomination: cfg.Cash.Denomination,
		MaxAttempts:  cfg.Auth.MaxAttempts,
		Logger:       log,
	})
	return &app{cfg: cfg, log: log, store: s, teller: t}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

type credentials struct {
	account string
	pin     string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.account, "account", "", "account id (required)")
	cmd.Flags().StringVar(&c.pin, "pin", "", "account PIN (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("pin")
}

// withSession logs in, runs fn and logs out again.
func withSession(cmd *cobra.Command, g *globalFlags, c *credentials, fn func(ctx context.Context, a *app, h *teller.Session) error) error {
	a, err := openApp(cmd, g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := a.teller.Login(ctx, c.account, c.pin)
	if err != nil {
		return err
	}
	defer a.teller.Logout(h)

	return fn(ctx, a, h)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func (a *app) money(d decimal.Decimal) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), a.cfg.Cash.Currency)
}
