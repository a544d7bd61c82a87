package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

type commitmentRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"` // decimal string, e.g. "12.34"
	DueDate     string `json:"due_date"`
	Pattern     string `json:"pattern"`
	Interval    int    `json:"interval"`
	EndDate     string `json:"end_date,omitempty"`
}

type commitmentResponse struct {
	ID               int64  `json:"id"`
	OwnerID          string `json:"owner_id"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Kind             string `json:"kind"`
	AmountCents      int64  `json:"amount_cents"`
	Amount           string `json:"amount"`
	NextDueDate      string `json:"next_due_date,omitempty"`
	LastExecutedDate string `json:"last_executed_date,omitempty"`
	Pattern          string `json:"pattern"`
	Interval         int    `json:"interval"`
	EndDate          string `json:"end_date,omitempty"`
	IsActive         bool   `json:"is_active"`
}

func toCommitmentResponse(c core.Commitment) commitmentResponse {
	return commitmentResponse{
		ID:               c.ID,
		OwnerID:          c.OwnerID,
		Description:      c.Description,
		Category:         c.Category,
		Kind:             string(c.Kind),
		AmountCents:      c.Amount.Cents,
		Amount:           core.FormatCents(c.Amount.Cents),
		NextDueDate:      c.NextDueDate.String(),
		LastExecutedDate: c.LastExecutedDate.String(),
		Pattern:          string(c.Pattern),
		Interval:         c.Interval,
		EndDate:          c.EndDate.String(),
		IsActive:         c.IsActive,
	}
}

// commitmentFromRequest builds a domain commitment from the wire form.
// Full validation happens in the service; only parse errors surface here.
func commitmentFromRequest(req commitmentRequest, ownerID string) (core.Commitment, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Commitment{}, err
	}
	due, err := parseDateParam(req.DueDate)
	if err != nil {
		return core.Commitment{}, err
	}
	end, err := parseDateParam(req.EndDate)
	if err != nil {
		return core.Commitment{}, err
	}
	return core.Commitment{
		OwnerID:     ownerID,
		Description: sanitizeText(req.Description),
		Category:    sanitizeText(req.Category),
		Kind:        core.EntryKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Amount:      core.Money{Cents: cents},
		NextDueDate: due,
		Pattern:     core.RecurrencePattern(strings.ToLower(strings.TrimSpace(req.Pattern))),
		Interval:    req.Interval,
		EndDate:     end,
	}, nil
}

// handleCommitments serves POST (create) and GET (list active) on
// /api/commitments.
func (s *Server) handleCommitments(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		respondError(w, r, http.StatusBadRequest, "missing owner id")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req commitmentRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		c, err := commitmentFromRequest(req, ownerID)
		if err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		id, err := s.commitments.Create(r.Context(), c)
		if err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		s.invalidateProjections(ownerID)
		created, err := s.commitments.Get(r.Context(), id, ownerID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "commitment created but could not be read back")
			return
		}
		respondJSON(w, http.StatusCreated, toCommitmentResponse(created))

	case http.MethodGet:
		list, err := s.commitments.ListActive(r.Context(), ownerID)
		if err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		out := make([]commitmentResponse, 0, len(list))
		for _, c := range list {
			out = append(out, toCommitmentResponse(c))
		}
		respondJSON(w, http.StatusOK, out)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleCommitmentByID serves /api/commitments/{id} and
// /api/commitments/{id}/deactivate.
func (s *Server) handleCommitmentByID(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		respondError(w, r, http.StatusBadRequest, "missing owner id")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/commitments/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 1 {
		respondError(w, r, http.StatusBadRequest, "invalid commitment id")
		return
	}

	if action == "deactivate" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		if err := s.commitments.Deactivate(r.Context(), id, ownerID); err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		s.invalidateProjections(ownerID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if action != "" {
		respondError(w, r, http.StatusNotFound, "unknown commitment action")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.commitments.Get(r.Context(), id, ownerID)
		if err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toCommitmentResponse(c))

	case http.MethodPut:
		var req commitmentRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		c, err := commitmentFromRequest(req, ownerID)
		if err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		c.ID = id
		if err := s.commitments.Update(r.Context(), c); err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		s.invalidateProjections(ownerID)
		updated, err := s.commitments.Get(r.Context(), id, ownerID)
		if err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toCommitmentResponse(updated))

	case http.MethodDelete:
		if err := s.commitments.Delete(r.Context(), id, ownerID); err != nil {
			s.writeCommitmentError(w, r, err)
			return
		}
		s.invalidateProjections(ownerID)
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPost)
	}
}

// writeCommitmentError maps domain errors to HTTP statuses.
func (s *Server) writeCommitmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrCommitmentNotFound):
		respondError(w, r, http.StatusNotFound, "commitment not found")
	case errors.Is(err, services.ErrCommitmentTerminal):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidPattern),
		errors.Is(err, core.ErrInvalidInterval),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrMissingDueDate),
		errors.Is(err, core.ErrEndBeforeDue):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Commitment operation failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
