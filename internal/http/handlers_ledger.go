package http

import (
	"net/http"
	"strings"

	"scadenze/internal/core"
)

type entryRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"` // decimal string
	Date        string `json:"date"`
}

type entryResponse struct {
	ID           int64  `json:"id"`
	OwnerID      string `json:"owner_id"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Kind         string `json:"kind"`
	AmountCents  int64  `json:"amount_cents"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	CommitmentID int64  `json:"commitment_id,omitempty"`
}

func toEntryResponse(e core.LedgerEntry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		OwnerID:      e.OwnerID,
		Description:  e.Description,
		Category:     e.Category,
		Kind:         string(e.Kind),
		AmountCents:  e.Amount.Cents,
		Amount:       core.FormatCents(e.Amount.Cents),
		Date:         e.Date.String(),
		CommitmentID: e.CommitmentID,
	}
}

// handleEntries serves POST (record a manual entry) and GET (list history)
// on /api/entries. Manual entries may carry any date, including past ones;
// only the engine writes commitment-linked entries.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		respondError(w, r, http.StatusBadRequest, "missing owner id")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req entryRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		date, err := parseDateParam(req.Date)
		if err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
		entry := core.LedgerEntry{
			OwnerID:     ownerID,
			Description: sanitizeText(req.Description),
			Category:    sanitizeText(req.Category),
			Kind:        core.EntryKind(strings.ToLower(strings.TrimSpace(req.Kind))),
			Amount:      core.Money{Cents: cents},
			Date:        date,
		}
		if err := entry.Validate(); err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		id, err := s.ledger.CreateEntry(r.Context(), entry)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to create ledger entry", "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		entry.ID = id
		s.invalidateProjections(ownerID)
		respondJSON(w, http.StatusCreated, toEntryResponse(entry))

	case http.MethodGet:
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
		if start.AfterDate(end) {
			respondError(w, r, http.StatusBadRequest, "start date must not be after end date")
			return
		}
		entries, err := s.ledger.ListEntries(r.Context(), ownerID, start, end)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to list ledger entries", "error", err)
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, toEntryResponse(e))
		}
		respondJSON(w, http.StatusOK, out)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
