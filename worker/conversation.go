package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacokyle01/engine-bridge/engine"
	"github.com/jacokyle01/engine-bridge/lichess"
)

// conversation answers chat commands.
type conversation struct {
	w   *Worker
	g   *game
	eng engine.Engine
}

func (c *conversation) react(ctx context.Context, line *lichess.ChatLine) {
	if line == nil || !strings.HasPrefix(line.Text, "!") {
		return
	}
	var reply string
	switch strings.ToLower(strings.TrimSpace(line.Text)) {
	case "!name":
		reply = fmt.Sprintf("%s running %s", c.w.botName, c.eng.Name())
	case "!eval":
		if line.Room != "spectator" {
			reply = "I don't tell that to my opponent, sorry."
			break
		}
		reply = formatStats(c.eng.Stats())
	case "!commands", "!help":
		reply = "Supported commands: !name, !eval"
	default:
		return
	}
	if err := c.w.api.Chat(ctx, c.g.id, line.Room, reply); err != nil {
		c.w.log.Warn().Err(err).Str("game_id", c.g.id).Msg("chat reply failed")
	}
}

func formatStats(stats engine.AnalysisLine) string {
	var parts []string
	for _, k := range []string{"depth", "score", "nodes", "nps"} {
		if v, ok := stats[k]; ok {
			parts = append(parts, k+" "+v)
		}
	}
	if len(parts) == 0 {
		return "No analysis yet."
	}
	return strings.Join(parts, ", ")
}
