package web

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.Views.Len(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode health response")
	}
}
