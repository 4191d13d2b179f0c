package lichess

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Stream reads newline delimited JSON from a long lived response. Blank
// lines are the server's keep-alives.
type Stream struct {
	body io.ReadCloser
	sc   *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Stream{body: body, sc: sc}
}

// next returns the next line, "" for a keep-alive, or io.EOF.
func (s *Stream) next() (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.sc.Text()), nil
}

// NextEvent returns the next account event; keep-alives have Type "ping".
func (s *Stream) NextEvent() (Event, error) {
	line, err := s.next()
	if err != nil {
		return Event{}, err
	}
	if line == "" {
		return Event{Type: "ping"}, nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return Event{}, fmt.Errorf("decode event %q: %w", line, err)
	}
	return ev, nil
}

// NextGame returns the next game stream entry; keep-alives have Type "ping".
func (s *Stream) NextGame() (GameEvent, error) {
	line, err := s.next()
	if err != nil {
		return GameEvent{}, err
	}
	if line == "" {
		return GameEvent{Type: "ping"}, nil
	}
	ev, err := decodeGameEvent([]byte(line))
	if err != nil {
		return GameEvent{}, fmt.Errorf("decode game event %q: %w", line, err)
	}
	return ev, nil
}

func (s *Stream) Close() error { return s.body.Close() }
