package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Queue hands game ids from the event stream to game runners and tracks
// which games are being played.
type Queue struct {
	games   chan string
	mu      sync.RWMutex
	pending map[string]time.Time
	active  map[string]StatsFunc
	log     zerolog.Logger
}

// NewQueue creates a queue holding up to size waiting games.
func NewQueue(size int, log zerolog.Logger) *Queue {
	return &Queue{
		games:   make(chan string, size),
		pending: make(map[string]time.Time),
		active:  make(map[string]StatsFunc),
		log:     log.With().Str("component", "dispatch").Logger(),
	}
}

// Add queues a started game. It returns false when the game is already
// known or the queue is full.
func (q *Queue) Add(gameID string) bool {
	q.mu.Lock()
	if _, ok := q.pending[gameID]; ok {
		q.mu.Unlock()
		return false
	}
	if _, ok := q.active[gameID]; ok {
		q.mu.Unlock()
		return false
	}
	q.pending[gameID] = time.Now()
	q.mu.Unlock()

	select {
	case q.games <- gameID:
		q.log.Info().Str("game_id", gameID).Msg("queued game")
		return true
	default:
		q.mu.Lock()
		delete(q.pending, gameID)
		q.mu.Unlock()
		q.log.Warn().Str("game_id", gameID).Msg("game queue full, dropping game")
		return false
	}
}

// Next blocks until a game is queued or ctx is done.
func (q *Queue) Next(ctx context.Context) (string, bool) {
	select {
	case id := <-q.games:
		return id, true
	case <-ctx.Done():
		return "", false
	}
}
