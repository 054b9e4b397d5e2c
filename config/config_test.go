package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DefaultLeverage)
	assert.True(t, cfg.DefaultRisk.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 50, cfg.MaxLeverage)
	assert.True(t, cfg.MaxRisk.Equal(decimal.NewFromInt(10)))
	assert.False(t, cfg.Testnet)
	assert.Equal(t, "./wal", cfg.WalDir)
	assert.Equal(t, "localhost:8088", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
default_leverage: 20
default_risk: "2.5"
max_leverage: 25
max_risk: "7.5"
testnet: true
wal_dir: /tmp/signals
listen_addr: 0.0.0.0:9000
poll_timeout: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.DefaultLeverage)
	assert.True(t, cfg.DefaultRisk.Equal(decimal.NewFromFloat(2.5)))
	assert.Equal(t, 25, cfg.MaxLeverage)
	assert.True(t, cfg.MaxRisk.Equal(decimal.NewFromFloat(7.5)))
	assert.True(t, cfg.Testnet)
	assert.Equal(t, "/tmp/signals", cfg.WalDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "default_leverage: 15\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.DefaultLeverage)
	assert.True(t, cfg.DefaultRisk.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "localhost:8088", cfg.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name:    "non-decimal risk",
			content: "default_risk: \"lots\"\n",
		},
		{
			name:    "default leverage above max",
			content: "default_leverage: 100\nmax_leverage: 50\n",
		},
		{
			name:    "default risk above max",
			content: "default_risk: \"20\"\nmax_risk: \"10\"\n",
		},
		{
			name:    "negative default risk",
			content: "default_risk: \"-1\"\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}
