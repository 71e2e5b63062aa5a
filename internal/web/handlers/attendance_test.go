package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func seedAttendance(store *memAttendanceStore) {
	entry := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store.byDate["2026-03-02"] = []ledger.Record{
		{StudentID: 1, Name: "Alice", RollNumber: "CS-1", Date: "2026-03-02", EntryTime: entry, ExitTime: entry.Add(time.Hour), Confidence: 80},
		{StudentID: 2, Name: "Bob", RollNumber: "CS-2", Date: "2026-03-02", EntryTime: entry.Add(time.Minute), Confidence: 75},
	}
}

func TestAttendanceRecords(t *testing.T) {
	store := newMemAttendanceStore()
	store.activeDate = "2026-03-02"
	seedAttendance(store)
	handler := NewAttendanceHandler(ledger.New(store))

	req := httptest.NewRequest("GET", "/api/v1/attendance", nil)
	recorder := httptest.NewRecorder()

	handler.Records(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response struct {
		Date    string          `json:"date"`
		Records []ledger.Record `json:"records"`
		Count   int             `json:"count"`
	}
	parseJSONResponse(t, recorder, &response)
	if response.Date != "2026-03-02" {
		t.Errorf("expected active date, got %q", response.Date)
	}
	if response.Count != 2 {
		t.Errorf("expected 2 records, got %d", response.Count)
	}
}

func TestAttendanceRecords_ExplicitDate(t *testing.T) {
	store := newMemAttendanceStore()
	store.activeDate = "2026-03-02"
	seedAttendance(store)
	handler := NewAttendanceHandler(ledger.New(store))

	req := httptest.NewRequest("GET", "/api/v1/attendance?date=2026-03-03", nil)
	recorder := httptest.NewRecorder()

	handler.Records(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response struct {
		Count int `json:"count"`
	}
	parseJSONResponse(t, recorder, &response)
	if response.Count != 0 {
		t.Errorf("expected empty day, got %d records", response.Count)
	}
}

func TestAttendanceRecords_InvalidDate(t *testing.T) {
	handler := NewAttendanceHandler(ledger.New(newMemAttendanceStore()))

	req := httptest.NewRequest("GET", "/api/v1/attendance?date=03-02-2026", nil)
	recorder := httptest.NewRecorder()

	handler.Records(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceSummary(t *testing.T) {
	store := newMemAttendanceStore()
	store.activeDate = "2026-03-02"
	seedAttendance(store)
	handler := NewAttendanceHandler(ledger.New(store))

	req := httptest.NewRequest("GET", "/api/v1/attendance/summary", nil)
	recorder := httptest.NewRecorder()

	handler.Summary(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var summary ledger.Summary
	parseJSONResponse(t, recorder, &summary)
	if summary.TotalEntries != 2 || summary.TotalExits != 1 {
		t.Errorf("unexpected totals %+v", summary)
	}
	if summary.PresentCount != 1 || len(summary.Present) != 1 || summary.Present[0] != "Bob" {
		t.Errorf("expected Bob present, got %+v", summary)
	}
}

func TestAttendanceSetDate(t *testing.T) {
	store := newMemAttendanceStore()
	handler := NewAttendanceHandler(ledger.New(store))

	req := httptest.NewRequest("POST", "/api/v1/attendance/date", bytes.NewBufferString(`{"date": "2026-03-05"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.SetDate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if store.activeDate != "2026-03-05" {
		t.Errorf("expected active date to change, got %q", store.activeDate)
	}
}

func TestAttendanceSetDate_Invalid(t *testing.T) {
	handler := NewAttendanceHandler(ledger.New(newMemAttendanceStore()))

	for _, body := range []string{`{"date": "not-a-date"}`, `{`} {
		req := httptest.NewRequest("POST", "/api/v1/attendance/date", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		handler.SetDate(recorder, req)

		assertStatusCode(t, recorder, http.StatusBadRequest)
	}
}

func TestAttendanceActiveDate(t *testing.T) {
	store := newMemAttendanceStore()
	store.activeDate = "2026-03-02"
	handler := NewAttendanceHandler(ledger.New(store))

	req := httptest.NewRequest("GET", "/api/v1/attendance/date", nil)
	recorder := httptest.NewRecorder()

	handler.ActiveDate(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response map[string]string
	parseJSONResponse(t, recorder, &response)
	if response["active_date"] != "2026-03-02" {
		t.Errorf("unexpected active date %q", response["active_date"])
	}
}
