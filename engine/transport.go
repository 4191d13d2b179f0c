package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultQuitTimeout = 3 * time.Second

// Transport owns the engine subprocess and exposes its stdin/stdout as a
// line oriented channel.
type Transport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	w     *bufio.Writer
	log   zerolog.Logger

	lines chan string
	done  chan struct{} // closed when the reader goroutine exits
	stop  chan struct{} // closed by Close
	rerr  error         // scanner error, valid after done is closed

	errDone chan struct{} // closed when the stderr drain exits, nil without a process

	quitTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex // guards w and closed
}

// Spawn starts args[0] with the remaining arguments.
func Spawn(args []string, log zerolog.Logger) (*Transport, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, fmt.Errorf("%w: no engine executable", ErrConfiguration)
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cmd := exec.Command(path, args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeAll(stdin)
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		closeAll(stdin, stdout)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		closeAll(stdin, stdout, stderr)
		return nil, fmt.Errorf("%w: start %s: %v", ErrConfiguration, path, err)
	}

	log.Debug().Strs("args", args).Int("pid", cmd.Process.Pid).Msg("engine started")

	t := newTransport(stdout, stdin, log)
	t.cmd = cmd
	t.errDone = make(chan struct{})
	go t.drainStderr(stderr)
	return t, nil
}

func closeAll(cs ...io.Closer) {
	for _, c := range cs {
		_ = c.Close()
	}
}

// newTransport wires a transport over arbitrary streams. Spawn uses it for
// the process pipes; tests use it with an in-memory engine double.
func newTransport(r io.Reader, w io.WriteCloser, log zerolog.Logger) *Transport {
	t := &Transport{
		stdin:       w,
		w:           bufio.NewWriter(w),
		log:         log,
		lines:       make(chan string),
		done:        make(chan struct{}),
		stop:        make(chan struct{}),
		quitTimeout: defaultQuitTimeout,
	}
	go t.readLoop(r)
	return t
}

func (t *Transport) readLoop(r io.Reader) {
	defer close(t.done)
	defer close(t.lines)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		select {
		case t.lines <- line:
		case <-t.stop:
			return
		}
	}
	t.rerr = sc.Err()
}

func (t *Transport) drainStderr(r io.Reader) {
	defer close(t.errDone)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		t.log.Debug().Str("stderr", sc.Text()).Msg("engine stderr")
	}
}

// SendLine writes one line to the engine.
func (t *Transport) SendLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("%w: transport closed", ErrEngineTerminated)
	}

	t.log.Debug().Str("line", line).Msg(">>")
	if _, err := t.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineTerminated, err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineTerminated, err)
	}
	return nil
}

// ReadLine blocks until the engine prints a line, the engine output ends,
// or ctx is done.
func (t *Transport) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-t.lines:
		if !ok {
			if t.rerr != nil {
				return "", fmt.Errorf("%w: %v", ErrEngineTerminated, t.rerr)
			}
			return "", ErrEngineTerminated
		}
		t.log.Debug().Str("line", line).Msg("<<")
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the engine. It closes stdin, gives the process the quit
// timeout to exit on its own and kills it afterwards. Safe to call repeatedly.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		close(t.stop)
		_ = t.stdin.Close()

		if t.cmd == nil {
			return
		}

		// The readers must be done with the pipes before Wait closes them.
		output := t.outputDone()
		killed := false
		select {
		case <-output:
		case <-time.After(t.quitTimeout):
			t.kill()
			killed = true
			select {
			case <-output:
			case <-time.After(t.quitTimeout):
				t.log.Warn().Msg("engine output still open after kill")
			}
		}

		exited := make(chan error, 1)
		go func() { exited <- t.cmd.Wait() }()

		var err error
		select {
		case err = <-exited:
		case <-time.After(t.quitTimeout):
			if !killed {
				t.kill()
			}
			err = <-exited
		}

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			t.closeErr = err
		}
		t.log.Debug().Err(err).Msg("engine stopped")
	})
	return t.closeErr
}

// outputDone is closed once both stdout and stderr readers have returned.
func (t *Transport) outputDone() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-t.done
		<-t.errDone
		close(ch)
	}()
	return ch
}

func (t *Transport) kill() {
	t.log.Warn().Dur("timeout", t.quitTimeout).Msg("engine did not exit, killing")
	_ = t.cmd.Process.Kill()
}
