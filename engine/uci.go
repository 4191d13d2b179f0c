package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jacokyle01/engine-bridge/models"
)

var uciStats = []string{"string", "depth", "nps", "nodes", "score"}

// uciEngine speaks the Universal Chess Interface.
type uciEngine struct {
	*session
	declared map[string]bool // options announced by the engine
}

var _ Engine = (*uciEngine)(nil)

func newUCIEngine(ctx context.Context, s *session, pos Position, userOptions map[string]string) (*uciEngine, error) {
	e := &uciEngine{session: s, declared: make(map[string]bool)}

	if err := e.send("uci"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	err := e.expect(ctx, "uciok", func(line string) bool {
		switch {
		case strings.HasPrefix(line, "id name "):
			e.name = strings.TrimSpace(strings.TrimPrefix(line, "id name "))
		case strings.HasPrefix(line, "option name "):
			e.declared[optionName(line)] = true
		}
		return strings.TrimSpace(line) == "uciok"
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(userOptions))
	for k := range userOptions {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if !e.declared[k] {
			e.log.Warn().Str("option", k).Msg("engine does not declare option")
		}
		if err := e.setOption(k, userOptions[k]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
		}
	}

	if err := e.setVariant(pos); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if err := e.send("isready"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if err := e.expect(ctx, "readyok", func(line string) bool {
		return strings.TrimSpace(line) == "readyok"
	}); err != nil {
		return nil, err
	}
	if err := e.send(uciPosition(pos)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	e.log.Info().Str("engine", e.name).Msg("uci engine ready")
	return e, nil
}

// optionName extracts NAME from "option name NAME type ...".
func optionName(line string) string {
	rest := strings.TrimPrefix(line, "option name ")
	if i := strings.Index(rest, " type "); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func (e *uciEngine) setOption(name, value string) error {
	if value == "" {
		return e.sendf("setoption name %s", name)
	}
	return e.sendf("setoption name %s value %s", name, value)
}

func (e *uciEngine) setVariant(pos Position) error {
	if err := e.setOption("UCI_Variant", pos.VariantName()); err != nil {
		return err
	}
	return e.setOption("UCI_Chess960", strconv.FormatBool(pos.Chess960))
}

func uciPosition(pos Position) string {
	fen := pos.FEN()
	if fen == StartFEN && !pos.Chess960 && pos.VariantName() == "chess" {
		return "position startpos"
	}
	return "position fen " + fen
}

func (e *uciEngine) PreGame(context.Context, models.TimeControl) error { return nil }

func (e *uciEngine) FirstSearch(ctx context.Context, pos Position, moveTimeMs int64) (string, error) {
	return e.search(ctx, pos, fmt.Sprintf("go movetime %d", moveTimeMs))
}

func (e *uciEngine) Search(ctx context.Context, pos Position, clock models.Clock) (string, error) {
	return e.search(ctx, pos, uciGo(clock))
}

func uciGo(c models.Clock) string {
	return fmt.Sprintf("go wtime %d btime %d winc %d binc %d",
		c.WhiteTimeMs, c.BlackTimeMs, c.WhiteIncMs, c.BlackIncMs)
}

func (e *uciEngine) search(ctx context.Context, pos Position, goCmd string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Engines may reset their variant state between games, so resend it.
	if err := e.setVariant(pos); err != nil {
		return "", err
	}
	if err := e.send(uciPosition(pos), goCmd); err != nil {
		return "", err
	}

	var best string
	var noMove bool
	err := e.await(ctx, "stop", func(line string) (lineResult, error) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return lineContinue, nil
		}
		switch fields[0] {
		case "info":
			info, err := parseUCIInfo(fields[1:])
			if err != nil {
				e.skip(&ParseError{Line: line, Reason: err.Error()})
				return lineContinue, nil
			}
			e.info.Record(info)
		case "bestmove":
			if len(fields) < 2 || fields[1] == "(none)" || fields[1] == "0000" {
				noMove = true
			} else {
				best = fields[1]
			}
			return lineDone, nil
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

func (e *uciEngine) Quit() error { return e.quit("quit") }

var uciIntFields = map[string]bool{
	"depth": true, "seldepth": true, "time": true, "nodes": true, "nps": true,
	"multipv": true, "hashfull": true, "tbhits": true, "currmovenumber": true,
	"cpuload": true, "sbhits": true,
}

// parseUCIInfo parses the tokens following "info".
func parseUCIInfo(f []string) (AnalysisLine, error) {
	if len(f) == 0 {
		return nil, fmt.Errorf("empty info")
	}
	line := AnalysisLine{}
	for i := 0; i < len(f); i++ {
		key := f[i]
		switch {
		case key == "string":
			line["string"] = strings.Join(f[i+1:], " ")
			return line, nil
		case key == "pv" || key == "refutation" || key == "currline":
			line[key] = strings.Join(f[i+1:], " ")
			return line, nil
		case uciIntFields[key]:
			if i+1 >= len(f) {
				return nil, fmt.Errorf("%s without value", key)
			}
			if _, err := strconv.ParseInt(f[i+1], 10, 64); err != nil {
				return nil, fmt.Errorf("bad %s %q", key, f[i+1])
			}
			line[key] = f[i+1]
			i++
		case key == "score":
			if i+2 >= len(f) || (f[i+1] != "cp" && f[i+1] != "mate") {
				return nil, fmt.Errorf("bad score")
			}
			if _, err := strconv.Atoi(f[i+2]); err != nil {
				return nil, fmt.Errorf("bad score value %q", f[i+2])
			}
			score := f[i+1] + " " + f[i+2]
			i += 2
			if i+1 < len(f) && (f[i+1] == "lowerbound" || f[i+1] == "upperbound") {
				score += " " + f[i+1]
				i++
			}
			line["score"] = score
		case key == "wdl":
			if i+3 >= len(f) {
				return nil, fmt.Errorf("short wdl")
			}
			line["wdl"] = strings.Join(f[i+1:i+4], " ")
			i += 3
		case key == "currmove":
			if i+1 >= len(f) {
				return nil, fmt.Errorf("currmove without value")
			}
			line["currmove"] = f[i+1]
			i++
		}
	}
	return line, nil
}
