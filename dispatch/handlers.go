package dispatch

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleViewQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending := s.q.Pending()
	status := map[string]interface{}{
		"queue_length":  len(pending),
		"pending_games": pending,
		"active_games":  s.q.Active(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gameID := r.URL.Query().Get("game_id")
	if gameID == "" {
		http.Error(w, "Missing game_id parameter", http.StatusBadRequest)
		return
	}

	stats, ok := s.q.Stats(gameID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": gameID,
		"stats":   stats,
	})
}
