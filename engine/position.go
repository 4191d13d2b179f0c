package engine

import "github.com/notnil/chess"

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is the board handed to an engine: a notnil/chess position plus
// the variant metadata the board library does not carry.
type Position struct {
	Board    *chess.Position
	Variant  string // UCI_Variant name, "" means standard chess
	Chess960 bool
}

// StartPosition returns the standard initial position.
func StartPosition() Position {
	return Position{Board: chess.NewGame().Position()}
}

// FEN returns the position in Forsyth-Edwards notation.
func (p Position) FEN() string {
	if p.Board == nil {
		return StartFEN
	}
	return p.Board.String()
}

// WhiteToMove reports whether white is the side to move.
func (p Position) WhiteToMove() bool {
	return p.Board == nil || p.Board.Turn() == chess.White
}

// VariantName returns the UCI_Variant name of the position.
func (p Position) VariantName() string {
	if p.Variant == "" {
		return "chess"
	}
	return p.Variant
}
