package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newRecognizeFixture(outcome attendance.Outcome) (*RecognizeHandler, *fakeRecognizer, *memAttendanceStore) {
	engine := &fakeRecognizer{outcome: outcome}
	store := newMemAttendanceStore()
	store.activeDate = "2026-03-02"
	handler := NewRecognizeHandler(engine, &fakeEncoder{vector: []float32{1, 0}}, ledger.New(store))
	return handler, engine, store
}

func TestRecognize_JSONPayload(t *testing.T) {
	handler, engine, _ := newRecognizeFixture(attendance.Outcome{
		Kind:       attendance.KindEntry,
		Name:       "Alice",
		Confidence: 70,
	})

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(testJPEG(t)) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response attendance.Outcome
	parseJSONResponse(t, recorder, &response)
	if response.Kind != attendance.KindEntry || response.Name != "Alice" {
		t.Errorf("unexpected outcome %+v", response)
	}

	if engine.lastDate != "2026-03-02" {
		t.Errorf("expected active date to be used, got %q", engine.lastDate)
	}
	if len(engine.lastProbe) != 2 {
		t.Errorf("expected encoded probe to reach the engine, got %v", engine.lastProbe)
	}
}

func TestRecognize_DataURLPayload(t *testing.T) {
	handler, _, _ := newRecognizeFixture(attendance.Outcome{Kind: attendance.KindEntry})

	payload := `{"image": "data:image/jpeg;base64,` + base64.StdEncoding.EncodeToString(testJPEG(t)) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
}

func TestRecognize_MultipartPayload(t *testing.T) {
	handler, _, _ := newRecognizeFixture(attendance.Outcome{Kind: attendance.KindEntry})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(testJPEG(t))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/v1/recognize", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
}

func TestRecognize_NoFace(t *testing.T) {
	engine := &fakeRecognizer{}
	store := newMemAttendanceStore()
	handler := NewRecognizeHandler(engine, &fakeEncoder{err: errNoFace}, ledger.New(store))

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(testJPEG(t)) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response attendance.Outcome
	parseJSONResponse(t, recorder, &response)
	if response.Kind != attendance.KindNoFace {
		t.Errorf("expected no_face outcome, got %+v", response)
	}
}

func TestRecognize_EncoderDown(t *testing.T) {
	engine := &fakeRecognizer{}
	handler := NewRecognizeHandler(engine, &fakeEncoder{err: errors.New("connection refused")}, ledger.New(newMemAttendanceStore()))

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(testJPEG(t)) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadGateway)
}

func TestRecognize_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing image", `{}`},
		{"invalid base64", `{"image": "!!!not-base64!!!"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newRecognizeFixture(attendance.Outcome{})

			req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()

			handler.Recognize(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestRecognize_BadDimension(t *testing.T) {
	engine := &fakeRecognizer{recognizeErr: attendance.ErrBadDimension}
	handler := NewRecognizeHandler(engine, &fakeEncoder{vector: []float32{1}}, ledger.New(newMemAttendanceStore()))

	payload := `{"image": "` + base64.StdEncoding.EncodeToString(testJPEG(t)) + `"}`
	req := httptest.NewRequest("POST", "/api/v1/recognize", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Recognize(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
