package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jacokyle01/engine-bridge/engine"
	"github.com/jacokyle01/engine-bridge/lichess"
	"github.com/jacokyle01/engine-bridge/models"
	"github.com/notnil/chess"
)

// ErrUnsupportedVariant is returned for variants the board library cannot replay.
var ErrUnsupportedVariant = errors.New("unsupported variant")

// game is the worker's view of one Lichess game.
type game struct {
	id         string
	initialFEN string
	white      bool // we play white
	tc         models.TimeControl
	state      lichess.GameState
	board      *chess.Game
	moves      int
}

func newGame(full *lichess.GameFull, botID string) (*game, error) {
	switch full.Variant.Key {
	case "", "standard", "fromPosition":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, full.Variant.Key)
	}

	g := &game{
		id:         full.ID,
		initialFEN: full.InitialFen,
		white:      strings.EqualFold(full.White.ID, botID),
	}
	if full.Clock != nil {
		g.tc = models.TimeControl{InitialMs: full.Clock.Initial, IncrementMs: full.Clock.Increment}
	}
	if err := g.update(full.State); err != nil {
		return nil, err
	}
	return g, nil
}

// update replays the full move list of state onto the initial position.
func (g *game) update(state lichess.GameState) error {
	var opts []func(*chess.Game)
	if g.initialFEN != "" && g.initialFEN != "startpos" {
		fen, err := chess.FEN(g.initialFEN)
		if err != nil {
			return fmt.Errorf("initial fen: %w", err)
		}
		opts = append(opts, fen)
	}
	board := chess.NewGame(opts...)

	moves := strings.Fields(state.Moves)
	for _, m := range moves {
		mv, err := chess.UCINotation{}.Decode(board.Position(), m)
		if err != nil {
			return fmt.Errorf("decode move %s: %w", m, err)
		}
		if err := board.Move(mv); err != nil {
			return fmt.Errorf("play move %s: %w", m, err)
		}
	}

	g.board = board
	g.state = state
	g.moves = len(moves)
	return nil
}

func (g *game) position() engine.Position {
	return engine.Position{Board: g.board.Position()}
}

// ourTurn reports whether the side to move is ours.
func (g *game) ourTurn() bool {
	return (g.board.Position().Turn() == chess.White) == g.white
}

func (g *game) clock() models.Clock {
	return models.Clock{
		WhiteTimeMs: g.state.WTime,
		BlackTimeMs: g.state.BTime,
		WhiteIncMs:  g.state.WInc,
		BlackIncMs:  g.state.BInc,
	}
}

// ourTimeMs is our remaining time plus increment.
func (g *game) ourTimeMs() int64 {
	if g.white {
		return g.state.WTime + g.state.WInc
	}
	return g.state.BTime + g.state.BInc
}

func (g *game) over() bool {
	return g.state.Status != "" && g.state.Status != "started" && g.state.Status != "created"
}
