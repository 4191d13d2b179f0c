package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jacokyle01/engine-bridge/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
token: "lip_secret"
engine:
  dir: /opt/engines
  name: lc0
  weights: weights.pb.gz
  threads: 4
  protocol: uci
ucioptions:
  Hash: 256
  Move Overhead: 100
  Ponder: false
  SyzygyPath: /tb
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, 1, cfg.MaxConcurrentGames)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Empty(t, cfg.StatusAddr)
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, models.EngineConfig{
		Path:     "/opt/engines/lc0",
		Weights:  "/opt/engines/weights.pb.gz",
		Threads:  4,
		Protocol: models.UCI,
		Options: map[string]string{
			"Hash":          "256",
			"Move Overhead": "100",
			"Ponder":        "false",
			"SyzygyPath":    "/tb",
		},
	}, cfg.EngineConfig())
}

func TestEngineConfigXBoardWithoutExtras(t *testing.T) {
	cfg, err := Parse([]byte(`
token: t
log_level: debug
max_concurrent_games: 3
engine:
  name: crafty
  protocol: xboard
`))
	require.NoError(t, err)

	assert.Equal(t, models.EngineConfig{Path: "crafty", Protocol: models.XBoard}, cfg.EngineConfig())
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, 3, cfg.MaxConcurrentGames)
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte(`
max_concurrent_games: -1
log_level: chatty
engine:
  protocol: usi
`))
	require.Error(t, err)
	for _, want := range []string{"token is required", "engine.name is required", "engine.protocol", "max_concurrent_games", "log_level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse([]byte("token: [unterminated"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lip_secret", cfg.Token)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
