// Package engine drives a chess engine subprocess over UCI or XBoard.
//
// Both protocols sit behind the Engine interface; New picks the
// implementation once from the configured protocol. A session is not meant
// to be shared between games: one game, one engine process.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacokyle01/engine-bridge/models"
	"github.com/rs/zerolog"
)

// Engine is the protocol independent contract the game loop drives.
type Engine interface {
	// Name is the engine's self reported name.
	Name() string
	// PreGame announces the game's time control. Call once before the first search.
	PreGame(ctx context.Context, tc models.TimeControl) error
	// FirstSearch searches pos for a fixed time and returns the chosen move.
	FirstSearch(ctx context.Context, pos Position, moveTimeMs int64) (string, error)
	// Search searches pos under the given clock and returns the chosen move.
	Search(ctx context.Context, pos Position, clock models.Clock) (string, error)
	// Stats returns a copy of the latest analysis line.
	Stats() AnalysisLine
	// PrintStats writes the protocol's reportable stats to w.
	PrintStats(w io.Writer)
	// Quit stops the engine. Calling it again is a no-op.
	Quit() error
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	drainTimeout            = 2 * time.Second
)

type options struct {
	log              zerolog.Logger
	handshakeTimeout time.Duration
	quitTimeout      time.Duration
}

// Option customises New.
type Option func(*options)

// WithLogger sets the logger used by the session and its transport.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHandshakeTimeout bounds the wait for the engine's handshake replies.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// WithQuitTimeout bounds the wait for the engine to exit after quit.
func WithQuitTimeout(d time.Duration) Option {
	return func(o *options) { o.quitTimeout = d }
}

// session is the state shared by both protocol implementations.
type session struct {
	mu    sync.Mutex // one protocol exchange at a time
	tr    *Transport
	info  Info
	name  string
	stats []string
	log   zerolog.Logger
}

func newSession(tr *Transport, log zerolog.Logger, stats []string) *session {
	return &session{
		tr:    tr,
		stats: stats,
		log:   log.With().Str("session_id", uuid.NewString()).Logger(),
	}
}

func (s *session) Name() string { return s.name }

func (s *session) Stats() AnalysisLine { return s.info.Line() }

func (s *session) PrintStats(w io.Writer) { s.info.Print(w, s.stats) }

func (s *session) send(lines ...string) error {
	for _, l := range lines {
		if err := s.tr.SendLine(l); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) sendf(format string, args ...any) error {
	return s.tr.SendLine(fmt.Sprintf(format, args...))
}

// quit sends the protocol's quit command and releases the process.
func (s *session) quit(cmd string) error {
	_ = s.tr.SendLine(cmd)
	return s.tr.Close()
}

// expect reads lines until match returns true or ctx expires. Used during
// the handshake, where a missing reply is a handshake failure.
func (s *session) expect(ctx context.Context, what string, match func(line string) bool) error {
	for {
		line, err := s.tr.ReadLine(ctx)
		if err != nil {
			return fmt.Errorf("%w: waiting for %s: %w", ErrHandshake, what, err)
		}
		if match(line) {
			return nil
		}
	}
}

// lineResult is what a protocol handler makes of one line read during a search.
type lineResult int

const (
	lineContinue lineResult = iota
	lineDone
)

// await feeds engine output to handle until it reports lineDone. If ctx
// ends first, interrupt is sent and the search is drained so the engine is
// left idle; a session that cannot be drained is closed.
func (s *session) await(ctx context.Context, interrupt string, handle func(line string) (lineResult, error)) error {
	for {
		line, err := s.tr.ReadLine(ctx)
		if err != nil {
			if ctx.Err() == nil {
				return err
			}
			return s.drain(interrupt, handle, ctx.Err())
		}
		res, err := handle(line)
		if err != nil {
			return err
		}
		if res == lineDone {
			return nil
		}
	}
}

func (s *session) drain(interrupt string, handle func(line string) (lineResult, error), cause error) error {
	s.log.Warn().Err(cause).Msg("search interrupted")
	if err := s.tr.SendLine(interrupt); err != nil {
		return cause
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		line, err := s.tr.ReadLine(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("engine did not stop, closing")
			_ = s.tr.Close()
			return cause
		}
		if res, _ := handle(line); res == lineDone {
			return cause
		}
	}
}

// skip logs an engine line that could not be parsed.
func (s *session) skip(err error) {
	s.log.Debug().Err(err).Msg("skipping engine line")
}
