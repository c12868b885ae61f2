package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"launch-sniper/internal/config"
	"launch-sniper/internal/domain"
	"launch-sniper/internal/feed"
	"launch-sniper/internal/handoff"
	"launch-sniper/internal/observability"
	"launch-sniper/internal/race"
	"launch-sniper/internal/sniper"
	"launch-sniper/internal/solana"
	"launch-sniper/internal/watch"
)

// RaceOptions holds flags for the race command.
type RaceOptions struct {
	*RootOptions
	Name        string
	Ticker      string
	NoFeed      bool
	MetricsAddr string
}

// NewRaceCommand creates the race command.
func NewRaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RaceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race the ledger and the feed for a launch",
		Long: `Race subscribes to the launch program's logs and connects to the frontend
feed, then waits until either reports a launch matching --name and --ticker.
The bonding curve of the winning mint is derived and handed off.

Example:
  sniper race --name TESTBABA --ticker BABUN
  sniper race --config sniper.yaml --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runRace(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "token name to match")
	cmd.Flags().StringVar(&opts.Ticker, "ticker", "", "token ticker to match")
	cmd.Flags().BoolVar(&opts.NoFeed, "no-feed", false, "watch the ledger only")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (overrides config; \"off\" to disable)")

	return cmd
}

// loadConfig layers flags over the loaded configuration and validates it.
func (o *RaceOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}

	if o.Name != "" {
		cfg.Target.Name = o.Name
	}
	if o.Ticker != "" {
		cfg.Target.Ticker = o.Ticker
	}
	if o.NoFeed {
		cfg.Feed.Enabled = false
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = o.MetricsAddr
		if cfg.MetricsAddr == "off" {
			cfg.MetricsAddr = ""
		}
	}
	cfg.Verbose = cfg.Verbose || o.Verbose

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runRace(cmd *cobra.Command, cfg config.Config) error {
	logger := log.New(cmd.ErrOrStderr(), "[sniper] ", log.LstdFlags|log.Lshortfile)

	target, err := domain.NewTarget(cfg.Target.Name, cfg.Target.Ticker)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	coordinator := race.NewCoordinator(buildWatchers(cfg)...).WithGracePeriod(cfg.Race.GracePeriod)
	launcher := &handoff.FileLauncher{
		Path:        cfg.Handoff.OutputPath,
		URLTemplate: cfg.Handoff.URLTemplate,
		Command:     cfg.Handoff.Command,
	}

	logger.Printf("Sniping %s", target)
	res, err := sniper.New(coordinator, launcher).Run(ctx, target)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "mint\t%s\npair\t%s\nsource\t%s\n", res.Event.AssetID, res.Pair, res.Event.Source)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Println("Cancelled")
		}
		return err
	}
	return nil
}

// buildWatchers creates the ledger watcher and, if enabled, the feed watcher.
func buildWatchers(cfg config.Config) []race.Watcher {
	ledgerCfg := watch.DefaultLedgerConfig()
	ledgerCfg.Commitment = cfg.Solana.Commitment
	ledgerCfg.ConnectAttempts = cfg.Solana.ConnectAttempts
	ledgerCfg.ConnectRetryDelay = cfg.Solana.ConnectRetryDelay
	ledgerCfg.FetchRetryDelay = cfg.Solana.FetchRetryDelay
	ledgerCfg.FetchMaxAttempts = cfg.Solana.FetchMaxAttempts
	ledgerCfg.InitialFetchDelay = cfg.Solana.InitialFetchDelay
	ledgerCfg.Verbose = cfg.Verbose

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)
	watchers := []race.Watcher{
		watch.NewLedgerWatcher(watch.DialLogs(cfg.Solana.WSEndpoint, nil), rpc, ledgerCfg),
	}

	if cfg.Feed.Enabled {
		params := feed.Params{
			Offset:      cfg.Feed.Offset,
			Limit:       cfg.Feed.Limit,
			Sort:        cfg.Feed.Sort,
			Order:       cfg.Feed.Order,
			IncludeNSFW: cfg.Feed.IncludeNSFW,
		}
		watchers = append(watchers, watch.NewFeedWatcher(watch.DialFeed(cfg.Feed.Endpoint, params, nil), cfg.Verbose))
	}

	return watchers
}

// startMetricsServer serves /metrics and /health in the background.
func startMetricsServer(addr string, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Printf("Starting metrics server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()
	return srv
}
