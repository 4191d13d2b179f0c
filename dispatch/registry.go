package dispatch

import (
	"sort"

	"github.com/jacokyle01/engine-bridge/engine"
)

// StatsFunc returns the latest analysis of a game's engine.
type StatsFunc func() engine.AnalysisLine

// Start marks a queued game as being played.
func (q *Queue) Start(gameID string, stats StatsFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, gameID)
	q.active[gameID] = stats
	q.log.Info().Str("game_id", gameID).Int("active", len(q.active)).Msg("game started")
}

// Finish forgets a game.
func (q *Queue) Finish(gameID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, gameID)
	delete(q.active, gameID)
	q.log.Info().Str("game_id", gameID).Int("active", len(q.active)).Msg("game finished")
}

// Pending returns the ids of queued games, oldest first.
func (q *Queue) Pending() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := q.pending[ids[i]], q.pending[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids
}

// Active returns the ids of games in progress, sorted.
func (q *Queue) Active() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids := make([]string, 0, len(q.active))
	for id := range q.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the latest engine analysis of an active game.
func (q *Queue) Stats(gameID string) (engine.AnalysisLine, bool) {
	q.mu.RLock()
	stats, ok := q.active[gameID]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if stats == nil {
		return engine.AnalysisLine{}, true
	}
	return stats(), true
}
