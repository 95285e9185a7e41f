package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"BB_ENV"`
	HTTPAddr string `mapstructure:"BB_HTTP_ADDR"`

	Bridge   BridgeConfig   `mapstructure:",squash"`
	Store    StoreConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type BridgeConfig struct {
	// OperatorAddress is the single privileged identity authorized for
	// admin operations. Fixed at deployment.
	OperatorAddress string `mapstructure:"BB_OPERATOR_ADDRESS"`

	// CustodyAccount and FeeRecipient are the host-ledger accounts the
	// bridge routes locked principal and fees to.
	CustodyAccount string `mapstructure:"BB_CUSTODY_ACCOUNT"`
	FeeRecipient   string `mapstructure:"BB_FEE_RECIPIENT"`

	// SupportedNetworks seeds the network allow-list at deployment.
	SupportedNetworks []string `mapstructure:"BB_SUPPORTED_NETWORKS"`

	// GenesisAlloc seeds the in-process host ledger in dev mode, as
	// comma-separated addr=amount pairs.
	GenesisAlloc string `mapstructure:"BB_GENESIS_ALLOC"`
}

type StoreConfig struct {
	// Backend selects the kv backend: "memory" or "redis".
	Backend  string `mapstructure:"BB_KV_BACKEND"`
	RedisURL string `mapstructure:"BB_REDIS_URL"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"BB_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"BB_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // ignore errors; env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("BB_ENV", "dev")
	viper.SetDefault("BB_HTTP_ADDR", ":8080")
	viper.SetDefault("BB_OPERATOR_ADDRESS", "")
	viper.SetDefault("BB_CUSTODY_ACCOUNT", "bridge:custody")
	viper.SetDefault("BB_FEE_RECIPIENT", "bridge:fees")
	viper.SetDefault("BB_SUPPORTED_NETWORKS", "bitcoin,ethereum")
	viper.SetDefault("BB_GENESIS_ALLOC", "")
	viper.SetDefault("BB_KV_BACKEND", "memory")
	viper.SetDefault("BB_REDIS_URL", "redis://127.0.0.1:6379/0")
	viper.SetDefault("BB_RATE_LIMIT_RPM", 120)
	viper.SetDefault("BB_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Handle array parsing for comma-separated values
	if networks := viper.GetString("BB_SUPPORTED_NETWORKS"); networks != "" {
		viper.Set("BB_SUPPORTED_NETWORKS", strings.Split(networks, ","))
	}
	if origins := viper.GetString("BB_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("BB_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bridge.OperatorAddress == "" {
		return fmt.Errorf("BB_OPERATOR_ADDRESS is required")
	}
	if c.Bridge.CustodyAccount == "" {
		return fmt.Errorf("BB_CUSTODY_ACCOUNT is required")
	}
	if c.Bridge.FeeRecipient == "" {
		return fmt.Errorf("BB_FEE_RECIPIENT is required")
	}
	if len(c.Bridge.SupportedNetworks) == 0 {
		return fmt.Errorf("BB_SUPPORTED_NETWORKS must list at least one network")
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid BB_KV_BACKEND %q (must be memory or redis)", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.RedisURL == "" {
		return fmt.Errorf("BB_REDIS_URL is required when BB_KV_BACKEND is redis")
	}
	if _, err := c.Bridge.ParseGenesisAlloc(); err != nil {
		return err
	}
	return nil
}

// ParseGenesisAlloc parses the addr=amount pairs seeding the dev host ledger.
func (b *BridgeConfig) ParseGenesisAlloc() (map[string]uint64, error) {
	alloc := make(map[string]uint64)
	raw := strings.TrimSpace(b.GenesisAlloc)
	if raw == "" {
		return alloc, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		addr, amount, found := strings.Cut(pair, "=")
		if !found || addr == "" {
			return nil, fmt.Errorf("invalid BB_GENESIS_ALLOC entry %q (want addr=amount)", pair)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid BB_GENESIS_ALLOC amount in %q: %w", pair, err)
		}
		alloc[addr] = n
	}

	return alloc, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
