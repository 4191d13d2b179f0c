package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jacokyle01/engine-bridge/config"
	"github.com/jacokyle01/engine-bridge/dispatch"
	"github.com/jacokyle01/engine-bridge/engine"
	"github.com/jacokyle01/engine-bridge/lichess"
	"github.com/jacokyle01/engine-bridge/worker"
	"github.com/notnil/chess"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConfig     = "config.yml"
	defaultMoveTimeMs = 2000
	queueSize         = 64
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  engine-bridge play [config]                     - Play games on Lichess")
		fmt.Println("  engine-bridge search <config> <fen> [movetime]  - Search one position and print the move")
		fmt.Println("  engine-bridge upgrade [config]                  - Turn the account into a bot account")
		return
	}

	var err error
	switch os.Args[1] {
	case "play":
		err = play(argOr(2, defaultConfig))
	case "search":
		if len(os.Args) < 4 {
			fmt.Println("Usage: engine-bridge search <config> <fen> [movetime_ms]")
			os.Exit(2)
		}
		err = search(os.Args[2], os.Args[3], argOr(4, ""))
	case "upgrade":
		err = upgrade(argOr(2, defaultConfig))
	default:
		fmt.Println("Unknown command:", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
}

func play(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := lichess.New(cfg.URL, cfg.Token, lichess.WithLogger(log.With().Str("component", "lichess").Logger()))
	if err != nil {
		return err
	}
	profile, err := client.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if !profile.IsBot() {
		return fmt.Errorf("%s is not a bot account, run the upgrade command first", profile.Username)
	}
	log.Info().Str("bot", profile.Username).Str("url", cfg.URL).Msg("connected to lichess")

	engineCfg := cfg.EngineConfig()
	newEngine := func(ctx context.Context, pos engine.Position, log zerolog.Logger) (engine.Engine, error) {
		return engine.New(ctx, engineCfg, pos, engine.WithLogger(log))
	}

	queue := dispatch.NewQueue(queueSize, log)
	w := worker.New(client, newEngine, queue, worker.Options{
		BotID:    profile.ID,
		BotName:  profile.Username,
		MaxGames: cfg.MaxConcurrentGames,
		Stats:    os.Stdout,
		Log:      log,
	})

	g, ctx := errgroup.WithContext(ctx)
	if cfg.StatusAddr != "" {
		srv := dispatch.NewServer(queue)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.StatusAddr) })
	}
	g.Go(func() error { return w.Run(ctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func search(path, fen, moveTime string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	moveTimeMs := int64(defaultMoveTimeMs)
	if moveTime != "" {
		moveTimeMs, err = strconv.ParseInt(moveTime, 10, 64)
		if err != nil || moveTimeMs <= 0 {
			return fmt.Errorf("invalid movetime %q", moveTime)
		}
	}

	pos := engine.StartPosition()
	if fen != "startpos" {
		opt, err := chess.FEN(fen)
		if err != nil {
			return fmt.Errorf("parse fen: %w", err)
		}
		pos = engine.Position{Board: chess.NewGame(opt).Position()}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, cfg.EngineConfig(), pos, engine.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Quit(); err != nil {
			log.Warn().Err(err).Msg("engine quit")
		}
	}()

	move, err := eng.FirstSearch(ctx, pos, moveTimeMs)
	if err != nil {
		return err
	}
	fmt.Printf("%s bestmove %s\n", eng.Name(), move)
	eng.PrintStats(os.Stdout)
	return nil
}

func upgrade(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	client, err := lichess.New(cfg.URL, cfg.Token)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := client.UpgradeToBot(ctx); err != nil {
		return fmt.Errorf("upgrade account: %w", err)
	}
	log.Info().Msg("account upgraded to a bot account")
	return nil
}
