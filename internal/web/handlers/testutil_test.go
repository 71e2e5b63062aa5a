package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// fakeRecognizer scripts engine behavior for handler tests.
type fakeRecognizer struct {
	outcome      attendance.Outcome
	recognizeErr error
	registered   registry.Identity
	registerErr  error
	deleteErr    error
	lastProbe    []float32
	lastDate     string
	deletedID    int64
}

func (f *fakeRecognizer) Recognize(_ context.Context, probe []float32, date string) (attendance.Outcome, error) {
	f.lastProbe = probe
	f.lastDate = date
	return f.outcome, f.recognizeErr
}

func (f *fakeRecognizer) MarkNoFace(_ context.Context) attendance.Outcome {
	return attendance.Outcome{Kind: attendance.KindNoFace}
}

func (f *fakeRecognizer) Register(_ context.Context, identity registry.Identity, vector []float32) (registry.Identity, error) {
	if f.registerErr != nil {
		return registry.Identity{}, f.registerErr
	}
	identity.ID = f.registered.ID
	identity.Vectors = [][]float32{vector}
	return identity, nil
}

func (f *fakeRecognizer) DeleteIdentity(_ context.Context, id int64) error {
	f.deletedID = id
	return f.deleteErr
}

// fakeEncoder returns a scripted embedding or error.
type fakeEncoder struct {
	vector []float32
	err    error
}

func (f *fakeEncoder) Encode(_ context.Context, _ []byte) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

var errNoFace = encoder.ErrNoFace

// memAttendanceStore is an in-memory ledger.Store for handler tests.
type memAttendanceStore struct {
	mu         sync.Mutex
	byDate     map[string][]ledger.Record
	activeDate string
}

func newMemAttendanceStore() *memAttendanceStore {
	return &memAttendanceStore{byDate: make(map[string][]ledger.Record)}
}

func (s *memAttendanceStore) RecordsFor(_ context.Context, date string) ([]ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Record, len(s.byDate[date]))
	copy(out, s.byDate[date])
	return out, nil
}

func (s *memAttendanceStore) AppendRecord(_ context.Context, date string, rec ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDate[date] = append(s.byDate[date], rec)
	return nil
}

func (s *memAttendanceStore) CloseOpenRecord(_ context.Context, date string, studentID int64, exit time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.byDate[date]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].StudentID == studentID && records[i].Open() {
			records[i].ExitTime = exit
			return true, nil
		}
	}
	return false, nil
}

func (s *memAttendanceStore) ActiveDate(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeDate, nil
}

func (s *memAttendanceStore) SetActiveDate(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDate = date
	return nil
}

// memIdentityStore is an in-memory registry.Store for handler tests.
type memIdentityStore struct {
	identities []registry.Identity
	nextID     int64
}

func (s *memIdentityStore) ListIdentities(_ context.Context) ([]registry.Identity, error) {
	out := make([]registry.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

func (s *memIdentityStore) InsertIdentity(_ context.Context, identity *registry.Identity) error {
	s.nextID++
	identity.ID = s.nextID
	s.identities = append(s.identities, *identity)
	return nil
}

func (s *memIdentityStore) DeleteIdentity(_ context.Context, id int64) error {
	for i := range s.identities {
		if s.identities[i].ID == id {
			s.identities = append(s.identities[:i], s.identities[i+1:]...)
			return nil
		}
	}
	return registry.ErrNotFound
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type.
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}
