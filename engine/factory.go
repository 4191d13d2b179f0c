package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jacokyle01/engine-bridge/models"
	"github.com/rs/zerolog"
)

// Args builds the engine command line: path, then -w weights, then -t threads.
func Args(cfg models.EngineConfig) []string {
	args := []string{cfg.Path}
	if cfg.Weights != "" {
		args = append(args, "-w", cfg.Weights)
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}
	return args
}

// New spawns the configured engine and completes the protocol handshake for
// pos. The process is released if the handshake fails.
func New(ctx context.Context, cfg models.EngineConfig, pos Position, opts ...Option) (Engine, error) {
	o := options{
		log:              zerolog.Nop(),
		handshakeTimeout: defaultHandshakeTimeout,
		quitTimeout:      defaultQuitTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Protocol != models.UCI && cfg.Protocol != models.XBoard {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrConfiguration, cfg.Protocol)
	}

	log := o.log.With().Str("component", "engine").Str("protocol", string(cfg.Protocol)).Logger()
	tr, err := Spawn(Args(cfg), log)
	if err != nil {
		return nil, err
	}
	tr.quitTimeout = o.quitTimeout

	e, err := handshake(ctx, tr, cfg, pos, log, o.handshakeTimeout)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return e, nil
}

// handshake selects the protocol implementation. This is the only place the
// protocol is inspected.
func handshake(ctx context.Context, tr *Transport, cfg models.EngineConfig, pos Position, log zerolog.Logger, timeout time.Duration) (Engine, error) {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cfg.Protocol {
	case models.XBoard:
		s := newSession(tr, log, xboardStats)
		e, err := newXBoardEngine(hctx, s, pos)
		if err != nil {
			return nil, err
		}
		if e.name == "" {
			e.name = filepath.Base(cfg.Path)
		}
		return e, nil
	case models.UCI:
		s := newSession(tr, log, uciStats)
		e, err := newUCIEngine(hctx, s, pos, cfg.Options)
		if err != nil {
			return nil, err
		}
		if e.name == "" {
			e.name = filepath.Base(cfg.Path)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: unknown protocol %q", ErrConfiguration, cfg.Protocol)
}
