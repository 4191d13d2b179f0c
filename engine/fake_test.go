package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type reply struct {
	line   string
	hangup bool
}

// fakeEngine is an in-memory engine double. respond is called for every
// line the session sends; replies are written in order on a separate
// goroutine so the session never blocks on stdin.
type fakeEngine struct {
	mu       sync.Mutex
	received []string
	replies  chan reply
	respond  func(f *fakeEngine, line string)
}

func (f *fakeEngine) reply(lines ...string) {
	for _, l := range lines {
		f.replies <- reply{line: l}
	}
}

func (f *fakeEngine) hangup() { f.replies <- reply{hangup: true} }

func (f *fakeEngine) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func newFakeTransport(t *testing.T, respond func(f *fakeEngine, line string)) (*Transport, *fakeEngine) {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	f := &fakeEngine{replies: make(chan reply, 256), respond: respond}

	go func() {
		for r := range f.replies {
			if r.hangup {
				_ = outW.Close()
				return
			}
			if _, err := fmt.Fprintln(outW, r.line); err != nil {
				return
			}
		}
	}()
	go func() {
		sc := bufio.NewScanner(inR)
		for sc.Scan() {
			line := sc.Text()
			f.mu.Lock()
			f.received = append(f.received, line)
			f.mu.Unlock()
			if f.respond != nil {
				f.respond(f, line)
			}
		}
	}()

	tr := newTransport(outR, inW, zerolog.Nop())
	t.Cleanup(func() {
		_ = tr.Close()
		_ = outR.Close()
		_ = inR.Close()
	})
	return tr, f
}

// newTestSession wraps a fake transport in a session as New would.
func newTestSession(t *testing.T, stats []string, respond func(f *fakeEngine, line string)) (*session, *fakeEngine) {
	t.Helper()
	tr, f := newFakeTransport(t, respond)
	return newSession(tr, zerolog.Nop(), stats), f
}

// writeScript writes an executable shell script engine into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engines need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}
