package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
exchange:
  name: liqui
  deposit_address: "0xdeposit"
  signing_key: "secret"
tokens:
  - symbol: eth
    address: "0x00"
    decimals: 18
  - symbol: knc
    address: "0x01"
    decimals: 18
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "liqui", cfg.Exchange.Name)
	assert.Equal(t, "eth", cfg.Exchange.SettlementAsset)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileDelay())
	assert.Equal(t, 10*time.Second, cfg.ChainTimeout())
	assert.Equal(t, "exchange.db", cfg.Database.Path)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, "eth", registry.Settlement())
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing name", `
exchange:
  deposit_address: "0xdeposit"
tokens:
  - {symbol: eth, address: "0x00", decimals: 18}
`},
		{"missing deposit address", `
exchange:
  name: liqui
tokens:
  - {symbol: eth, address: "0x00", decimals: 18}
`},
		{"no tokens", `
exchange:
  name: liqui
  deposit_address: "0xdeposit"
`},
		{"settlement asset not listed", `
exchange:
  name: liqui
  deposit_address: "0xdeposit"
  settlement_asset: btc
tokens:
  - {symbol: eth, address: "0x00", decimals: 18}
`},
		{"malformed yaml", `exchange: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestSigningKeyFromEnvironment(t *testing.T) {
	t.Setenv("EXCHANGE_SIGNING_KEY", "env-secret")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Exchange.SigningKey)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "liqui", cfg.Exchange.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
