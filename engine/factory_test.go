package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jacokyle01/engine-bridge/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uciScript = `echo "$@" > "$(dirname "$0")/args.txt"
while IFS= read -r line; do
  case "$line" in
    uci) echo "id name ShellFish"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) echo "info depth 1 score cp 12 nodes 20"; echo "bestmove e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

const xboardScript = `while IFS= read -r line; do
  case "$line" in
    "protover 2") echo 'feature myname="ShellBoard" setboard=1 ping=1 done=1' ;;
    ping*) echo "pong ${line#ping }" ;;
    go) echo "2 15 3 200 e2e4"; echo "move e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

func TestArgs(t *testing.T) {
	tests := []struct {
		cfg  models.EngineConfig
		want []string
	}{
		{cfg: models.EngineConfig{Path: "/e/sf"}, want: []string{"/e/sf"}},
		{cfg: models.EngineConfig{Path: "/e/lc0", Weights: "/e/w.pb"}, want: []string{"/e/lc0", "-w", "/e/w.pb"}},
		{cfg: models.EngineConfig{Path: "/e/sf", Threads: 8}, want: []string{"/e/sf", "-t", "8"}},
		{cfg: models.EngineConfig{Path: "/e/lc0", Weights: "/e/w.pb", Threads: 2}, want: []string{"/e/lc0", "-w", "/e/w.pb", "-t", "2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Args(tt.cfg))
	}
}

func TestNewUCI(t *testing.T) {
	path := writeScript(t, uciScript)
	cfg := models.EngineConfig{
		Path:     path,
		Weights:  "/tmp/weights.pb",
		Threads:  4,
		Protocol: models.UCI,
		Options:  map[string]string{"Hash": "32"},
	}

	e, err := New(context.Background(), cfg, StartPosition())
	require.NoError(t, err)
	defer e.Quit()

	assert.IsType(t, &uciEngine{}, e)
	assert.Equal(t, "ShellFish", e.Name())

	args, err := os.ReadFile(filepath.Join(filepath.Dir(path), "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-w /tmp/weights.pb -t 4\n", string(args))

	move, err := e.Search(context.Background(), StartPosition(), models.Clock{WhiteTimeMs: 1000, BlackTimeMs: 1000})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)
	assert.Equal(t, AnalysisLine{"depth": "1", "score": "cp 12", "nodes": "20"}, e.Stats())

	require.NoError(t, e.Quit())
	require.NoError(t, e.Quit())
}

func TestNewXBoard(t *testing.T) {
	path := writeScript(t, xboardScript)
	cfg := models.EngineConfig{Path: path, Protocol: models.XBoard}

	e, err := New(context.Background(), cfg, StartPosition())
	require.NoError(t, err)

	assert.IsType(t, &xboardEngine{}, e)
	assert.Equal(t, "ShellBoard", e.Name())

	require.NoError(t, e.PreGame(context.Background(), models.TimeControl{InitialMs: 180000, IncrementMs: 2000}))
	move, err := e.FirstSearch(context.Background(), StartPosition(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", move)
	assert.Equal(t, "200", e.Stats()["nodes"])

	require.NoError(t, e.Quit())
	require.NoError(t, e.Quit())
}

func TestNewDefaultsNameToExecutable(t *testing.T) {
	path := writeScript(t, `while IFS= read -r line; do
  case "$line" in
    uci) echo "uciok" ;;
    isready) echo "readyok" ;;
  esac
done
`)
	e, err := New(context.Background(), models.EngineConfig{Path: path, Protocol: models.UCI}, StartPosition())
	require.NoError(t, err)
	defer e.Quit()
	assert.Equal(t, "engine.sh", e.Name())
}

func TestNewConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\n"), 0o644))
	script := writeScript(t, uciScript)

	tests := []struct {
		name string
		cfg  models.EngineConfig
	}{
		{name: "empty path", cfg: models.EngineConfig{Protocol: models.UCI}},
		{name: "missing", cfg: models.EngineConfig{Path: filepath.Join(dir, "missing"), Protocol: models.UCI}},
		{name: "not executable", cfg: models.EngineConfig{Path: notExec, Protocol: models.UCI}},
		{name: "unknown protocol", cfg: models.EngineConfig{Path: script, Protocol: "usi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, StartPosition())
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewEngineExitsDuringHandshake(t *testing.T) {
	path := writeScript(t, "exit 0\n")

	_, err := New(context.Background(), models.EngineConfig{Path: path, Protocol: models.XBoard}, StartPosition())
	require.ErrorIs(t, err, ErrHandshake)
	assert.ErrorIs(t, err, ErrEngineTerminated)
}

func TestNewSilentEngineTimesOut(t *testing.T) {
	path := writeScript(t, "exec sleep 5\n")

	start := time.Now()
	_, err := New(context.Background(), models.EngineConfig{Path: path, Protocol: models.UCI}, StartPosition(),
		WithHandshakeTimeout(100*time.Millisecond), WithQuitTimeout(100*time.Millisecond))
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Less(t, time.Since(start), 3*time.Second)
}
