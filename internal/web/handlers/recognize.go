package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// maxUploadSize bounds camera frame uploads (8 MB).
const maxUploadSize = 8 << 20

// Recognizer runs the attendance decision for a probe embedding.
type Recognizer interface {
	Recognize(ctx context.Context, probe []float32, date string) (attendance.Outcome, error)
	MarkNoFace(ctx context.Context) attendance.Outcome
	Register(ctx context.Context, identity registry.Identity, vector []float32) (registry.Identity, error)
	DeleteIdentity(ctx context.Context, id int64) error
}

// FrameEncoder turns a camera frame into a face embedding.
type FrameEncoder interface {
	Encode(ctx context.Context, frame []byte) ([]float32, error)
}

// RecognizeHandler handles scan endpoints.
type RecognizeHandler struct {
	engine  Recognizer
	encoder FrameEncoder
	ledger  *ledger.Ledger
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(engine Recognizer, enc FrameEncoder, led *ledger.Ledger) *RecognizeHandler {
	return &RecognizeHandler{
		engine:  engine,
		encoder: enc,
		ledger:  led,
	}
}

// frameRequest is the base64-JSON payload the camera devices send.
type frameRequest struct {
	Image string `json:"image"`
}

// extractFrame reads the camera frame from a request. JSON bodies
// carry a base64 image; multipart bodies carry an "image" file.
func extractFrame(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, errors.New("failed to parse multipart form")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New("image file is required")
		}
		defer file.Close()

		frame, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return nil, errors.New("failed to read image file")
		}
		return frame, nil
	}

	var req frameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&req); err != nil {
		return nil, errors.New(errInvalidRequestBody)
	}
	if req.Image == "" {
		return nil, errors.New("image is required")
	}

	return decodeBase64Image(req.Image)
}

// decodeBase64Image decodes a base64 image payload. Devices sometimes
// send data URLs; the prefix is stripped first.
func decodeBase64Image(payload string) ([]byte, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}

	frame, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("image is not valid base64")
	}
	return frame, nil
}

// Recognize handles a camera scan: decode the frame, derive the
// embedding and run the attendance decision for the active date.
func (h *RecognizeHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	frame, err := extractFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	probe, err := h.encoder.Encode(r.Context(), frame)
	if errors.Is(err, encoder.ErrNoFace) {
		respondJSON(w, http.StatusOK, h.engine.MarkNoFace(r.Context()))
		return
	}
	if err != nil {
		log.Printf("frame encoding failed: %v", err)
		respondError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}

	date, err := h.ledger.ActiveDate(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve active date")
		return
	}

	outcome, err := h.engine.Recognize(r.Context(), probe, date)
	if errors.Is(err, attendance.ErrBadDimension) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("recognition failed: %v", err)
		respondError(w, http.StatusInternalServerError, "recognition failed")
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}
