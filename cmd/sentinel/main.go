package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"OptionsSentinel/internal/broker"
	"OptionsSentinel/internal/collector"
	"OptionsSentinel/internal/config"
	"OptionsSentinel/internal/dedup"
	"OptionsSentinel/internal/logging"
	"OptionsSentinel/internal/notifier"
	"OptionsSentinel/internal/scheduler"
	"OptionsSentinel/internal/screener"
	"OptionsSentinel/internal/selector"
	"OptionsSentinel/internal/store"
	"OptionsSentinel/internal/tracker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}

	root := &cobra.Command{
		Use:          "sentinel",
		Short:        "Select near-the-money calls for pre-market movers and track their intraday highs",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", defaultPath, "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "select",
			Short: "Scrape the screener and store today's candidates",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					rows, err := a.scraper().Scrape(ctx)
					if err != nil {
						return fmt.Errorf("scrape screener: %w", err)
					}
					report, err := a.selector().Select(ctx, rows)
					if err != nil {
						return err
					}
					a.notify(ctx, notifier.FormatSelection(report))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "track",
			Short: "Poll the latest record and update high-water marks",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					summary, err := a.tracker().Run(ctx)
					if summary != nil {
						a.notify(context.WithoutCancel(ctx), notifier.FormatTracking(summary))
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Select, wait for the open slot, then track",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					loc, err := a.cfg.Location()
					if err != nil {
						return fmt.Errorf("schedule timezone: %w", err)
					}
					s := &scheduler.Session{
						Scraper:  a.scraper(),
						Selector: a.selector(),
						Tracker:  a.tracker(),
						Notifier: a.notifier,
						Log:      a.log,
						OpenCron: a.cfg.Schedule.OpenCron,
						Location: loc,
						Retries:  a.cfg.Telegram.Retries,
					}
					return s.Run(ctx)
				})
			},
		},
		newDedupCmd(),
	)
	return root
}

func newDedupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dedup <input.json> <output.json>",
		Short:   "Remove duplicate options from an exported snapshot",
		Example: "  sentinel dedup options_data_2.json options_data_3.json",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(os.Getenv("LOG_LEVEL"), "")
			defer log.Sync() //nolint:errcheck
			removed, err := dedup.File(args[0], args[1])
			if err != nil {
				return err
			}
			log.Infow("snapshot deduplicated", "input", args[0], "output", args[1], "removed", removed)
			return nil
		},
	}
}

// app holds the clients built once at startup and shared by the commands.
type app struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	store    store.Store
	gateway  *collector.Gateway
	notifier notifier.Notifier
}

// withApp loads and validates config, builds the shared clients, and runs fn
// under a context cancelled by SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.File)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	bc := broker.NewClient(broker.Options{
		BaseURL:           cfg.Broker.BaseURL,
		RequestsPerSecond: cfg.Broker.RequestsPerSecond,
		Proxy:             cfg.Proxy,
	}, log)
	if err := bc.Login(ctx, cfg.Broker.Username, cfg.Broker.Password, cfg.Broker.MFASecret); err != nil {
		return fmt.Errorf("broker login: %w", err)
	}

	var chains collector.ChainFetcher
	if cfg.Chain.AlpacaKey != "" && cfg.Chain.AlpacaSecret != "" {
		chains = collector.NewAlpacaFetcher(cfg.Chain.AlpacaKey, cfg.Chain.AlpacaSecret, cfg.Chain.LookaheadDays)
	} else {
		chains = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Infow("option chain source", "source", chains.Name())

	var n notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Telegram.BotToken != "" {
		tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, "", log)
		if err != nil {
			log.Warnw("telegram unavailable, reports will only be logged", "error", err)
		} else {
			n = tn
		}
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		gateway:  collector.NewGateway(chains, bc),
		notifier: n,
	}
	return fn(ctx, a)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return store.NewSQLiteStore(cfg.Store.SQLitePath, log)
	case config.BackendRedis:
		return store.NewRedisStore(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
	case config.BackendMemory:
		log.Warnw("memory store selected, nothing will be persisted")
		return store.NewMemoryStore(), nil
	default:
		return store.NewFirestoreStore(ctx, cfg.Store.FirestoreKey, log)
	}
}

func (a *app) scraper() *screener.Scraper {
	return screener.NewScraper(a.cfg.Screener.URL, screener.Filters{
		MinMarketCap:    a.cfg.Screener.MinMarketCap,
		PremarketFilter: a.cfg.Screener.PremarketFilter,
	}, a.cfg.Proxy, a.log)
}

func (a *app) selector() *selector.Selector {
	return selector.New(a.gateway, a.store, selector.Config{
		SkipSymbols:     a.cfg.Selector.SkipSymbols,
		MaxDaysToExpiry: a.cfg.Selector.MaxDaysToExpiry,
		CreatedAtOffset: a.cfg.Selector.CreatedAtOffset,
	}, a.log)
}

func (a *app) tracker() *tracker.Tracker {
	return tracker.New(a.gateway, a.store, a.cfg.Tracker.PollInterval, a.cfg.Tracker.Budget, a.log)
}

func (a *app) notify(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := a.notifier.SendWithRetry(ctx, text, a.cfg.Telegram.Retries); err != nil {
		a.log.Errorw("send notification", "error", err)
	}
}
