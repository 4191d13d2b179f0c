package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a missing or unusable executable, or an unknown protocol.
	ErrConfiguration = errors.New("engine configuration")
	// ErrEngineTerminated reports that the engine exited or closed a pipe mid-conversation.
	ErrEngineTerminated = errors.New("engine terminated")
	// ErrHandshake reports that the engine never acknowledged the protocol handshake.
	ErrHandshake = errors.New("engine handshake failed")
	// ErrProtocolParse is wrapped by every *ParseError.
	ErrProtocolParse = errors.New("unparsable engine output")
	// ErrNoMove is returned when the engine finishes a search without a move.
	ErrNoMove = errors.New("engine returned no move")
)

// ParseError describes one engine line that could not be understood.
// It is never fatal to a search.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrProtocolParse, e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error { return ErrProtocolParse }
