// Package worker plays Lichess games with a local engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacokyle01/engine-bridge/dispatch"
	"github.com/jacokyle01/engine-bridge/engine"
	"github.com/jacokyle01/engine-bridge/lichess"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// Lichess aborts games whose first move takes longer than 30 seconds.
	firstMoveTimeMs = 2000
	abortAfter      = 20 * time.Second
	moveGrace       = 10 * time.Second
	reconnectDelay  = 5 * time.Second
)

// API is the part of the Lichess client the worker uses.
type API interface {
	StreamEvents(ctx context.Context) (*lichess.Stream, error)
	StreamGame(ctx context.Context, gameID string) (*lichess.Stream, error)
	MakeMove(ctx context.Context, gameID, move string) error
	Chat(ctx context.Context, gameID, room, text string) error
	Abort(ctx context.Context, gameID string) error
}

// EngineFactory starts an engine for a game's initial position.
type EngineFactory func(ctx context.Context, pos engine.Position, log zerolog.Logger) (engine.Engine, error)

// Worker accepts started games from the event stream and plays them.
type Worker struct {
	api      API
	newEng   EngineFactory
	queue    *dispatch.Queue
	botID    string
	botName  string
	maxGames int
	stats    io.Writer
	log      zerolog.Logger
}

// Options configures a Worker.
type Options struct {
	BotID    string
	BotName  string
	MaxGames int
	// Stats receives the engine's stats after every move; nil discards them.
	Stats io.Writer
	Log   zerolog.Logger
}

func New(api API, newEng EngineFactory, queue *dispatch.Queue, opts Options) *Worker {
	if opts.MaxGames < 1 {
		opts.MaxGames = 1
	}
	if opts.Stats == nil {
		opts.Stats = io.Discard
	}
	return &Worker{
		api:      api,
		newEng:   newEng,
		queue:    queue,
		botID:    opts.BotID,
		botName:  opts.BotName,
		maxGames: opts.MaxGames,
		stats:    opts.Stats,
		log:      opts.Log.With().Str("component", "worker").Logger(),
	}
}

// Run watches the event stream and plays up to MaxGames games at once
// until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Str("bot", w.botName).Int("max_games", w.maxGames).Msg("starting worker")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.watchEvents(ctx) })
	g.Go(func() error { return w.runGames(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchEvents feeds gameStart events into the queue, reconnecting when the
// stream drops.
func (w *Worker) watchEvents(ctx context.Context) error {
	for {
		err := w.readEvents(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("event stream ended")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *Worker) readEvents(ctx context.Context) error {
	stream, err := w.api.StreamEvents(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		ev, err := stream.NextEvent()
		if err != nil {
			return err
		}
		switch ev.Type {
		case "gameStart":
			if ev.Game == nil {
				continue
			}
			id := ev.Game.GameID
			if id == "" {
				id = ev.Game.ID
			}
			w.queue.Add(id)
		case "gameFinish":
			if ev.Game != nil {
				w.log.Debug().Str("game_id", ev.Game.ID).Msg("game finished upstream")
			}
		case "ping":
		default:
			w.log.Debug().Str("type", ev.Type).Msg("ignoring event")
		}
	}
}

func (w *Worker) runGames(ctx context.Context) error {
	var games errgroup.Group
	games.SetLimit(w.maxGames)

	for {
		id, ok := w.queue.Next(ctx)
		if !ok {
			_ = games.Wait()
			return ctx.Err()
		}
		games.Go(func() error {
			defer w.queue.Finish(id)
			if err := w.PlayGame(ctx, id); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Str("game_id", id).Msg("game abandoned")
			}
			return nil
		})
	}
}

// PlayGame plays one game from its stream until it ends.
func (w *Worker) PlayGame(ctx context.Context, gameID string) error {
	log := w.log.With().Str("game_id", gameID).Logger()

	stream, err := w.api.StreamGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("open game stream: %w", err)
	}
	defer stream.Close()

	first, err := stream.NextGame()
	if err != nil {
		return fmt.Errorf("read game: %w", err)
	}
	if first.Full == nil {
		return fmt.Errorf("expected gameFull, got %q", first.Type)
	}
	g, err := newGame(first.Full, w.botID)
	if err != nil {
		return err
	}

	eng, err := w.newEng(ctx, g.position(), log)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := eng.Quit(); err != nil {
			log.Warn().Err(err).Msg("engine quit")
		}
	}()

	w.queue.Start(gameID, eng.Stats)
	log.Info().Str("engine", eng.Name()).Bool("white", g.white).Msg("game started")

	if err := eng.PreGame(ctx, g.tc); err != nil {
		return err
	}
	if !g.over() && g.ourTurn() {
		move, err := eng.FirstSearch(ctx, g.position(), firstMoveTimeMs)
		if err != nil {
			return fmt.Errorf("first search: %w", err)
		}
		if err := w.api.MakeMove(ctx, gameID, move); err != nil {
			return fmt.Errorf("make move %s: %w", move, err)
		}
	}

	conv := &conversation{w: w, g: g, eng: eng}
	abortAt := time.Now().Add(abortAfter)

	for !g.over() {
		ev, err := stream.NextGame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read game: %w", err)
		}

		switch ev.Type {
		case "gameState":
			if err := g.update(*ev.State); err != nil {
				return err
			}
			if g.over() || !g.ourTurn() {
				continue
			}
			if err := w.move(ctx, g, eng); err != nil {
				return err
			}
			abortAt = time.Now().Add(abortAfter)
		case "chatLine":
			conv.react(ctx, ev.Chat)
		case "ping":
			if time.Now().After(abortAt) && g.moves < 2 {
				log.Info().Msg("aborting game for lack of activity")
				if err := w.api.Abort(ctx, gameID); err != nil {
					return fmt.Errorf("abort: %w", err)
				}
			}
		}
	}

	log.Info().Str("status", g.state.Status).Str("winner", g.state.Winner).Msg("game over")
	return nil
}

// move searches the current position and sends the result.
func (w *Worker) move(ctx context.Context, g *game, eng engine.Engine) error {
	moveCtx, cancel := context.WithTimeout(ctx, time.Duration(g.ourTimeMs())*time.Millisecond+moveGrace)
	defer cancel()

	move, err := eng.Search(moveCtx, g.position(), g.clock())
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := w.api.MakeMove(ctx, g.id, move); err != nil {
		return fmt.Errorf("make move %s: %w", move, err)
	}

	fmt.Fprintf(w.stats, "%s move %d: %s\n", g.id, g.moves+1, move)
	eng.PrintStats(w.stats)
	return nil
}
