package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jacokyle01/engine-bridge/models"
)

var xboardStats = []string{"depth", "nodes", "score"}

// featureTimeout is how long a protover 2 engine gets to finish its feature
// announcements.
var featureTimeout = 2 * time.Second

// xboardEngine speaks the Chess Engine Communication Protocol (protover 2).
type xboardEngine struct {
	*session
	features map[string]string
	pings    int
}

var _ Engine = (*xboardEngine)(nil)

func newXBoardEngine(ctx context.Context, s *session, pos Position) (*xboardEngine, error) {
	e := &xboardEngine{session: s, features: make(map[string]string)}

	if err := e.send("xboard", "protover 2"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if err := e.readFeatures(ctx); err != nil {
		return nil, err
	}
	e.name = e.features["myname"]
	if e.features["setboard"] == "0" {
		e.log.Warn().Msg("engine does not support setboard")
	}

	if err := e.send("new"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if v := xboardVariant(pos); v != "" {
		if list, ok := e.features["variants"]; ok && !containsField(list, v) {
			e.log.Warn().Str("variant", v).Str("supported", list).Msg("engine does not list variant")
		}
		if err := e.send("variant " + v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
		}
	}
	if err := e.send("force", "setboard "+pos.FEN(), "post"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if e.features["ping"] == "1" {
		if err := e.ping(ctx); err != nil {
			return nil, err
		}
	}

	e.log.Info().Str("engine", e.name).Msg("xboard engine ready")
	return e, nil
}

// readFeatures collects feature announcements until done=1. An engine that
// stays silent for featureTimeout is taken to be protover 1 with default
// features; done=0 lifts that limit.
func (e *xboardEngine) readFeatures(ctx context.Context) error {
	fctx, cancel := context.WithTimeout(ctx, featureTimeout)
	defer cancel()

	for {
		rctx := fctx
		if e.features["done"] == "0" {
			rctx = ctx
		}
		line, err := e.tr.ReadLine(rctx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				e.log.Info().Int("features", len(e.features)).Msg("no feature done=1, assuming defaults")
				return nil
			}
			return fmt.Errorf("%w: waiting for features: %w", ErrHandshake, err)
		}
		if !strings.HasPrefix(line, "feature ") {
			continue
		}
		for k, v := range parseFeatures(strings.TrimPrefix(line, "feature ")) {
			e.features[k] = v
		}
		if e.features["done"] == "1" {
			return nil
		}
	}
}

// xboardVariant returns the variant to declare, or "" for standard chess.
func xboardVariant(pos Position) string {
	if pos.Chess960 {
		return "fischerandom"
	}
	if v := pos.VariantName(); v != "chess" {
		return v
	}
	return ""
}

func containsField(list, v string) bool {
	for _, f := range strings.Split(list, ",") {
		if strings.TrimSpace(f) == v {
			return true
		}
	}
	return false
}

func (e *xboardEngine) ping(ctx context.Context) error {
	e.pings++
	n := strconv.Itoa(e.pings)
	if err := e.send("ping " + n); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return e.expect(ctx, "pong "+n, func(line string) bool {
		return strings.TrimSpace(line) == "pong "+n
	})
}

// parseFeatures splits `a=1 b="two words"` into a map.
func parseFeatures(s string) map[string]string {
	out := make(map[string]string)
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return out
		}
		key := s[:eq]
		s = s[eq+1:]
		var val string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
		} else {
			end := strings.IndexFunc(s, unicode.IsSpace)
			if end < 0 {
				end = len(s)
			}
			val, s = s[:end], s[end:]
		}
		out[key] = val
	}
}

// levelArgs converts a time control into the level command's base minutes,
// base seconds and increment seconds.
func levelArgs(tc models.TimeControl) (minutes, seconds, inc int64) {
	return tc.InitialMs / 60000, tc.InitialMs / 1000 % 60, tc.IncrementMs / 1000
}

func (e *xboardEngine) PreGame(_ context.Context, tc models.TimeControl) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	minutes, seconds, inc := levelArgs(tc)
	if seconds != 0 {
		return e.sendf("level 0 %d:%02d %d", minutes, seconds, inc)
	}
	return e.sendf("level 0 %d %d", minutes, inc)
}

func (e *xboardEngine) FirstSearch(ctx context.Context, pos Position, moveTimeMs int64) (string, error) {
	st := moveTimeMs / 1000
	if st < 1 {
		st = 1
	}
	return e.search(ctx, pos, fmt.Sprintf("st %d", st))
}

func (e *xboardEngine) Search(ctx context.Context, pos Position, clock models.Clock) (string, error) {
	own, opp := xboardTimes(pos, clock)
	return e.search(ctx, pos, fmt.Sprintf("time %d", own), fmt.Sprintf("otim %d", opp))
}

// xboardTimes returns the side to move's and the opponent's remaining time in
// centiseconds. Increments are expected to be folded into the clock already.
func xboardTimes(pos Position, c models.Clock) (own, opp int64) {
	if pos.WhiteToMove() {
		return c.WhiteTimeMs / 10, c.BlackTimeMs / 10
	}
	return c.BlackTimeMs / 10, c.WhiteTimeMs / 10
}

func (e *xboardEngine) search(ctx context.Context, pos Position, timeCmds ...string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send("force", "setboard "+pos.FEN()); err != nil {
		return "", err
	}
	if err := e.send(timeCmds...); err != nil {
		return "", err
	}
	if err := e.send("go"); err != nil {
		return "", err
	}

	var best string
	var noMove bool
	err := e.await(ctx, "?", func(line string) (lineResult, error) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return lineContinue, nil
		}
		switch {
		case fields[0] == "move" && len(fields) > 1:
			best = fields[1]
			return lineDone, nil
		case fields[0] == "resign", fields[0] == "1-0", fields[0] == "0-1", fields[0] == "1/2-1/2":
			noMove = true
			return lineDone, nil
		case fields[0] == "Illegal" || strings.HasPrefix(fields[0], "Error"):
			e.log.Warn().Str("line", line).Msg("engine rejected command")
		case startsWithDigit(fields[0]):
			post, err := parsePost(fields)
			if err != nil {
				e.skip(&ParseError{Line: line, Reason: err.Error()})
				return lineContinue, nil
			}
			e.info.Record(post)
		default:
			e.skip(&ParseError{Line: line, Reason: "unexpected line"})
		}
		return lineContinue, nil
	})
	if err != nil {
		return "", err
	}
	if noMove {
		return "", ErrNoMove
	}
	return best, nil
}

func (e *xboardEngine) Quit() error { return e.quit("quit") }

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// parsePost parses a thinking line: depth score time nodes [pv...].
func parsePost(f []string) (AnalysisLine, error) {
	if len(f) < 4 {
		return nil, fmt.Errorf("short post line")
	}
	names := []string{"depth", "score", "time", "nodes"}
	line := AnalysisLine{}
	for i, name := range names {
		v := f[i]
		if name == "depth" {
			v = strings.TrimRight(v, ".&")
		}
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("bad %s %q", name, f[i])
		}
		line[name] = v
	}
	if len(f) > 4 {
		line["pv"] = strings.Join(f[4:], " ")
	}
	return line, nil
}
