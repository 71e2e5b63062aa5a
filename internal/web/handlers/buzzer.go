package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// BuzzerTrigger plays a named pattern on the feedback hardware.
type BuzzerTrigger interface {
	TriggerPattern(ctx context.Context, pattern string) error
}

// BuzzerHandler exposes a manual hardware test endpoint.
type BuzzerHandler struct {
	buzzer BuzzerTrigger
}

// NewBuzzerHandler creates a new buzzer handler. buzzer may be nil
// when no hardware is configured.
func NewBuzzerHandler(buzzer BuzzerTrigger) *BuzzerHandler {
	return &BuzzerHandler{buzzer: buzzer}
}

type triggerBuzzerRequest struct {
	Pattern string `json:"pattern"`
}

// Trigger plays a pattern on the ESP32 for hardware testing.
func (h *BuzzerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.buzzer == nil {
		respondError(w, http.StatusServiceUnavailable, "no buzzer hardware configured")
		return
	}

	var req triggerBuzzerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Pattern == "" {
		respondError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	if err := h.buzzer.TriggerPattern(r.Context(), req.Pattern); err != nil {
		log.Printf("buzzer trigger failed: %v", err)
		respondError(w, http.StatusBadGateway, "buzzer unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
