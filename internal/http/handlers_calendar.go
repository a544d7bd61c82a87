package http

import (
	"errors"
	"net/http"

	"scadenze/internal/cache"
	"scadenze/internal/core"
	"scadenze/internal/metrics"
	"scadenze/internal/services"
)

type dayProjectionResponse struct {
	Date        string               `json:"date"`
	Balance     int64                `json:"balance_cents"`
	Income      int64                `json:"income_cents"`
	Expenses    int64                `json:"expenses_cents"`
	Commitments []commitmentResponse `json:"commitments,omitempty"`
}

// handleCalendar serves GET /api/calendar?owner=&start=&end=, one projected
// day per calendar day in the range. Responses are cached per owner and
// range; concurrent identical requests share one computation.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ownerID := ownerFrom(r)
	if ownerID == "" {
		respondError(w, r, http.StatusBadRequest, "missing owner id")
		return
	}
	start, err := parseDateParam(r.URL.Query().Get("start"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid start date, want YYYY-MM-DD")
		return
	}
	end, err := parseDateParam(r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid end date, want YYYY-MM-DD")
		return
	}
	if start.IsEmpty() || end.IsEmpty() {
		respondError(w, r, http.StatusBadRequest, "start and end dates are required")
		return
	}

	key := cache.Key(ownerID, start.String(), end.String())
	if series, ok := s.projectionCache.Get(key); ok {
		metrics.ProjectionRequests.WithLabelValues("hit").Inc()
		respondJSON(w, http.StatusOK, toCalendarResponse(series))
		return
	}
	metrics.ProjectionRequests.WithLabelValues("miss").Inc()

	result, err, _ := s.projectionGroup.Do(key, func() (any, error) {
		series, err := s.projector.Project(r.Context(), ownerID, start, end)
		if err != nil {
			return nil, err
		}
		s.projectionCache.Set(key, series)
		return series, nil
	})
	if err != nil {
		s.writeProjectionError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCalendarResponse(result.([]services.DayProjection)))
}

func toCalendarResponse(series []services.DayProjection) []dayProjectionResponse {
	out := make([]dayProjectionResponse, 0, len(series))
	for _, day := range series {
		resp := dayProjectionResponse{
			Date:     day.Date.String(),
			Balance:  day.Balance,
			Income:   day.Income,
			Expenses: day.Expenses,
		}
		for _, c := range day.Commitments {
			resp.Commitments = append(resp.Commitments, toCommitmentResponse(c))
		}
		out = append(out, resp)
	}
	return out
}

func (s *Server) writeProjectionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRange),
		errors.Is(err, services.ErrRangeTooLarge),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyOwner):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Calendar projection failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
