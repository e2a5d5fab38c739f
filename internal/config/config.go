package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tokenex/exchange-core/internal/token"
)

const (
	defaultSettlementAsset   = "eth"
	defaultReconcileDelaySec = 300
	defaultChainTimeoutSec   = 10
	defaultDatabasePath      = "exchange.db"
)

// Config is the static process configuration, loaded once at startup.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Database DatabaseConfig `yaml:"database"`
	Tokens   []token.Token  `yaml:"tokens"`
}

// ExchangeConfig carries the exchange identity and reconciliation settings.
type ExchangeConfig struct {
	Name              string `yaml:"name"`
	DepositAddress    string `yaml:"deposit_address"`
	SigningKey        string `yaml:"signing_key"`
	SettlementAsset   string `yaml:"settlement_asset"`
	ReconcileDelaySec int64  `yaml:"reconcile_delay_sec"`
	ChainTimeoutSec   int64  `yaml:"chain_timeout_sec"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Load reads and validates the YAML configuration file. The signing key can
// be kept out of the file via the EXCHANGE_SIGNING_KEY environment variable,
// which takes precedence when set.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes, defaults and validates a raw YAML document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if key := os.Getenv("EXCHANGE_SIGNING_KEY"); key != "" {
		c.Exchange.SigningKey = key
	}
	if c.Exchange.SettlementAsset == "" {
		c.Exchange.SettlementAsset = defaultSettlementAsset
	}
	if c.Exchange.ReconcileDelaySec <= 0 {
		c.Exchange.ReconcileDelaySec = defaultReconcileDelaySec
	}
	if c.Exchange.ChainTimeoutSec <= 0 {
		c.Exchange.ChainTimeoutSec = defaultChainTimeoutSec
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
}

func (c *Config) validate() error {
	if c.Exchange.Name == "" {
		return fmt.Errorf("config: exchange.name is required")
	}
	if c.Exchange.DepositAddress == "" {
		return fmt.Errorf("config: exchange.deposit_address is required")
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("config: at least one token is required")
	}
	// Registry construction re-checks symbols and decimals; fail early here
	// so a bad catalog is reported at load time.
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Registry builds the immutable token registry from the configured catalog.
func (c *Config) Registry() (*token.Registry, error) {
	return token.NewRegistry(c.Exchange.SettlementAsset, c.Tokens)
}

// ReconcileDelay is the minimum interval between deposit reconciliation runs.
func (c *Config) ReconcileDelay() time.Duration {
	return time.Duration(c.Exchange.ReconcileDelaySec) * time.Second
}

// ChainTimeout bounds every on-chain collaborator call.
func (c *Config) ChainTimeout() time.Duration {
	return time.Duration(c.Exchange.ChainTimeoutSec) * time.Second
}
