package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoScript = `while IFS= read -r line; do
  [ "$line" = "bye" ] && exit 0
  echo "got $line"
done
`

func TestTransportRoundTrip(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, echoScript)}, zerolog.Nop())
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.SendLine("hello"))
	line, err := tr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "got hello", line)
}

func TestTransportEngineExit(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, echoScript)}, zerolog.Nop())
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.SendLine("bye"))
	_, err = tr.ReadLine(context.Background())
	assert.ErrorIs(t, err, ErrEngineTerminated)

	// Reads stay failed once the output has ended.
	_, err = tr.ReadLine(context.Background())
	assert.ErrorIs(t, err, ErrEngineTerminated)
}

func TestTransportReadLineHonoursContext(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, echoScript)}, zerolog.Nop())
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransportCloseIsIdempotent(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, echoScript)}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.SendLine("hello"), ErrEngineTerminated)
}

func TestTransportCloseKillsStuckEngine(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, "exec sleep 30\n")}, zerolog.Nop())
	require.NoError(t, err)
	tr.quitTimeout = 50 * time.Millisecond

	start := time.Now()
	require.NoError(t, tr.Close())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTransportCloseStopsReadersBeforeWait(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, echoScript)}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	for name, ch := range map[string]chan struct{}{"stdout": tr.done, "stderr": tr.errDone} {
		select {
		case <-ch:
		default:
			t.Fatalf("%s reader still running after Close", name)
		}
	}
}

func TestTransportCloseChattyEngine(t *testing.T) {
	tr, err := Spawn([]string{writeScript(t, "trap '' PIPE\nwhile :; do echo spam; echo noise >&2; done\n")}, zerolog.Nop())
	require.NoError(t, err)
	tr.quitTimeout = 50 * time.Millisecond

	line, err := tr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "spam", line)

	start := time.Now()
	require.NoError(t, tr.Close())
	assert.Less(t, time.Since(start), 5*time.Second)
	_, err = tr.ReadLine(context.Background())
	assert.ErrorIs(t, err, ErrEngineTerminated)
}

func TestCloseAll(t *testing.T) {
	a, b := &countingCloser{}, &countingCloser{}
	closeAll(a, b)
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error {
	c.n++
	return nil
}
