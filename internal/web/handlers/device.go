package handlers

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Device modes the camera firmware understands. The device polls
// GET /device_mode and switches its local behavior accordingly.
const (
	ModeIdle       = "idle"
	ModeRegister   = "register"
	ModeAttendance = "attendance"
)

var validModes = map[string]bool{
	ModeIdle:       true,
	ModeRegister:   true,
	ModeAttendance: true,
}

// DeviceHandler tracks the mode the scanning device should be in.
type DeviceHandler struct {
	mu   sync.RWMutex
	mode string
}

// NewDeviceHandler creates a device handler starting in idle mode.
func NewDeviceHandler() *DeviceHandler {
	return &DeviceHandler{mode: ModeIdle}
}

// Mode returns the current device mode.
func (h *DeviceHandler) Mode(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	mode := h.mode
	h.mu.RUnlock()

	respondJSON(w, http.StatusOK, map[string]string{"mode": mode})
}

// SetMode switches the device mode.
func (h *DeviceHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if !validModes[mode] {
		respondError(w, http.StatusBadRequest, "mode must be idle, register or attendance")
		return
	}

	h.mu.Lock()
	h.mode = mode
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{"mode": mode})
}
