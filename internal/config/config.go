// Package config loads sniper configuration from defaults, an optional
// YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete sniper configuration.
type Config struct {
	Target      TargetConfig  `yaml:"target"`
	Solana      SolanaConfig  `yaml:"solana"`
	Feed        FeedConfig    `yaml:"feed"`
	Race        RaceConfig    `yaml:"race"`
	Handoff     HandoffConfig `yaml:"handoff"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Verbose     bool          `yaml:"verbose"`
}

// TargetConfig names the token to snipe.
type TargetConfig struct {
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
}

// SolanaConfig configures the ledger channel.
type SolanaConfig struct {
	RPCEndpoint       string        `yaml:"rpc_endpoint"`
	WSEndpoint        string        `yaml:"ws_endpoint"`
	Commitment        string        `yaml:"commitment"`
	ConnectAttempts   int           `yaml:"connect_attempts"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
	FetchRetryDelay   time.Duration `yaml:"fetch_retry_delay"`
	FetchMaxAttempts  int           `yaml:"fetch_max_attempts"`
	InitialFetchDelay time.Duration `yaml:"initial_fetch_delay"`
}

// FeedConfig configures the frontend feed channel.
type FeedConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Offset      int    `yaml:"offset"`
	Limit       int    `yaml:"limit"`
	Sort        string `yaml:"sort"`
	Order       string `yaml:"order"`
	IncludeNSFW bool   `yaml:"include_nsfw"`
}

// RaceConfig configures the race coordinator.
type RaceConfig struct {
	GracePeriod time.Duration `yaml:"grace_period"`
}

// HandoffConfig configures delivery of the result.
type HandoffConfig struct {
	OutputPath  string   `yaml:"output_path"`
	URLTemplate string   `yaml:"url_template"`
	Command     []string `yaml:"command"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Solana: SolanaConfig{
			RPCEndpoint:       "https://api.mainnet-beta.solana.com",
			WSEndpoint:        "wss://api.mainnet-beta.solana.com",
			Commitment:        "confirmed",
			ConnectAttempts:   5,
			ConnectRetryDelay: 1 * time.Second,
			FetchRetryDelay:   500 * time.Millisecond,
		},
		Feed: FeedConfig{
			Enabled:     true,
			Endpoint:    "wss://frontend-api.pump.fun",
			Offset:      0,
			Limit:       100,
			Sort:        "last_trade_timestamp",
			Order:       "DESC",
			IncludeNSFW: true,
		},
		Race: RaceConfig{
			GracePeriod: 5 * time.Second,
		},
		Handoff: HandoffConfig{
			OutputPath:  "handoff/url.txt",
			URLTemplate: "https://photon-sol.tinyastro.io/en/lp/{pair}",
		},
		MetricsAddr: ":9090",
	}
}

// Load builds a Config from defaults, the YAML file at path (if not empty),
// the .env file at envFile (if present) and the environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv does not override variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
//
// RPC is a bare host used for both https:// and wss:// endpoints;
// SOLANA_RPC_ENDPOINT and SOLANA_WS_ENDPOINT take precedence over it.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if host, ok := lookup("RPC"); ok && host != "" {
		host = strings.TrimSuffix(host, "/")
		c.Solana.RPCEndpoint = "https://" + host
		c.Solana.WSEndpoint = "wss://" + host
	}
	if v, ok := lookup("SOLANA_RPC_ENDPOINT"); ok && v != "" {
		c.Solana.RPCEndpoint = v
	}
	if v, ok := lookup("SOLANA_WS_ENDPOINT"); ok && v != "" {
		c.Solana.WSEndpoint = v
	}
	if v, ok := lookup("FEED_ENDPOINT"); ok && v != "" {
		c.Feed.Endpoint = v
	}
	if v, ok := lookup("SNIPE_NAME"); ok && v != "" {
		c.Target.Name = v
	}
	if v, ok := lookup("SNIPE_TICKER"); ok && v != "" {
		c.Target.Ticker = v
	}
}

// Validate checks the configuration for a race.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Target.Name) == "" {
		errs = append(errs, errors.New("target.name is required"))
	}
	if strings.TrimSpace(c.Target.Ticker) == "" {
		errs = append(errs, errors.New("target.ticker is required"))
	}
	if c.Solana.RPCEndpoint == "" {
		errs = append(errs, errors.New("solana.rpc_endpoint is required"))
	}
	if c.Solana.WSEndpoint == "" {
		errs = append(errs, errors.New("solana.ws_endpoint is required"))
	}
	if c.Solana.ConnectAttempts < 1 {
		errs = append(errs, errors.New("solana.connect_attempts must be at least 1"))
	}
	if c.Solana.FetchRetryDelay <= 0 {
		errs = append(errs, errors.New("solana.fetch_retry_delay must be positive"))
	}
	if c.Solana.FetchMaxAttempts < 0 {
		errs = append(errs, errors.New("solana.fetch_max_attempts must not be negative"))
	}
	if c.Feed.Enabled && c.Feed.Endpoint == "" {
		errs = append(errs, errors.New("feed.endpoint is required when the feed is enabled"))
	}
	if c.Race.GracePeriod < 0 {
		errs = append(errs, errors.New("race.grace_period must not be negative"))
	}
	if c.Handoff.URLTemplate == "" {
		errs = append(errs, errors.New("handoff.url_template is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
