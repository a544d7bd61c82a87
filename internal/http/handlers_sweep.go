package http

import (
	"net/http"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

// handleSweepRun triggers one execution sweep on POST /api/sweep/run. The
// optional as_of query parameter backdates or postdates the sweep horizon;
// it defaults to today. A sweep already in progress yields 409 with the
// skipped summary rather than queueing.
func (s *Server) handleSweepRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	asOf := core.Truncate(time.Now())
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid as_of date, want YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	summary, err := s.engine.Run(r.Context(), asOf)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Sweep run failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "sweep failed")
		return
	}
	if summary.Status == services.RunSkipped {
		respondJSON(w, http.StatusConflict, summary)
		return
	}

	// Any commitment may have advanced; cached forecasts are stale.
	s.projectionCache.InvalidatePrefix("")
	respondJSON(w, http.StatusOK, summary)
}
