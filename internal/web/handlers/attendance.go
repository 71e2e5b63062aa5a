package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler handles ledger query endpoints.
type AttendanceHandler struct {
	ledger *ledger.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(led *ledger.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: led}
}

// resolveDate returns the requested date, falling back to the active
// date when the query parameter is absent.
func (h *AttendanceHandler) resolveDate(r *http.Request) (string, error) {
	if date := r.URL.Query().Get("date"); date != "" {
		if err := ledger.ValidateDate(date); err != nil {
			return "", err
		}
		return date, nil
	}
	return h.ledger.ActiveDate(r.Context())
}

// Records returns the raw entry/exit records for a day.
func (h *AttendanceHandler) Records(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.ledger.RecordsFor(r.Context(), date)
	if err != nil {
		log.Printf("records query failed for %s: %v", sanitizeForLog(date), err)
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"records": records,
		"count":   len(records),
	})
}

// Summary returns the per-day attendance summary.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	date, err := h.resolveDate(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.ledger.Summarize(r.Context(), date)
	if err != nil {
		log.Printf("summary failed for %s: %v", sanitizeForLog(date), err)
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

type setDateRequest struct {
	Date string `json:"date"`
}

// SetDate switches the active attendance date.
func (h *AttendanceHandler) SetDate(w http.ResponseWriter, r *http.Request) {
	var req setDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.ledger.SetActiveDate(r.Context(), req.Date); err != nil {
		if errors.Is(err, ledger.ErrInvalidDate) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("set active date failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to set active date")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"active_date": req.Date})
}

// ActiveDate returns the date new scans currently land on.
func (h *AttendanceHandler) ActiveDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.ledger.ActiveDate(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve active date")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"active_date": date})
}
