package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// StudentsHandler handles enrollment and roster endpoints.
type StudentsHandler struct {
	engine   Recognizer
	encoder  FrameEncoder
	registry *registry.Registry
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(engine Recognizer, enc FrameEncoder, reg *registry.Registry) *StudentsHandler {
	return &StudentsHandler{
		engine:   engine,
		encoder:  enc,
		registry: reg,
	}
}

type registerRequest struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Department string `json:"department"`
	Image      string `json:"image"`
}

// studentResponse hides embeddings from roster listings.
type studentResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Department string `json:"department"`
	Enrolled   bool   `json:"enrolled"`
}

func toStudentResponse(identity registry.Identity) studentResponse {
	return studentResponse{
		ID:         identity.ID,
		Name:       identity.Name,
		RollNumber: identity.RollNumber,
		Department: identity.Department,
		Enrolled:   len(identity.Vectors) > 0,
	}
}

// Register enrolls a student from a face photo.
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.RollNumber) == "" {
		respondError(w, http.StatusBadRequest, "name and roll_number are required")
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	frame, err := decodeBase64Image(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	vector, err := h.encoder.Encode(r.Context(), frame)
	if errors.Is(err, encoder.ErrNoFace) {
		respondError(w, http.StatusUnprocessableEntity, "no face detected in the photo")
		return
	}
	if err != nil {
		log.Printf("enrollment encoding failed: %v", err)
		respondError(w, http.StatusBadGateway, "embedding service unavailable")
		return
	}

	student, err := h.engine.Register(r.Context(), registry.Identity{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Department: req.Department,
	}, vector)
	if errors.Is(err, registry.ErrDuplicateRoll) {
		respondError(w, http.StatusConflict, "roll number already registered")
		return
	}
	if err != nil {
		log.Printf("enrollment failed for %s: %v", sanitizeForLog(req.RollNumber), err)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	respondJSON(w, http.StatusCreated, toStudentResponse(student))
}

// List returns the enrolled roster.
func (h *StudentsHandler) List(w http.ResponseWriter, _ *http.Request) {
	students := make([]studentResponse, 0)
	for _, identity := range h.registry.List() {
		students = append(students, toStudentResponse(identity))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": students,
		"count":    len(students),
	})
}

// Delete removes a student. Attendance history keeps its snapshots.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid student ID")
		return
	}

	if err := h.engine.DeleteIdentity(r.Context(), id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			respondError(w, http.StatusNotFound, "student not found")
			return
		}
		log.Printf("delete failed for student %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
