package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const attendanceFileName = "attendance.json"

type attendanceDocument struct {
	ActiveDate    string                     `json:"active_date,omitempty"`
	RecordsByDate map[string][]ledger.Record `json:"records_by_date"`
}

// AttendanceStore keeps the ledger in attendance.json inside the data
// directory. Records are grouped by day; the active date selects which
// day new scans land on.
type AttendanceStore struct {
	path string
	mu   sync.Mutex
	doc  attendanceDocument
}

// OpenAttendanceStore loads attendance.json from dataDir. Missing and
// corrupt files start the store empty.
func OpenAttendanceStore(dataDir string) (*AttendanceStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	s := &AttendanceStore{path: filepath.Join(dataDir, attendanceFileName)}
	s.doc.RecordsByDate = make(map[string][]ledger.Record)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		log.Printf("ignoring corrupt %s, starting empty: %v", s.path, err)
		s.doc = attendanceDocument{}
	}
	if s.doc.RecordsByDate == nil {
		s.doc.RecordsByDate = make(map[string][]ledger.Record)
	}
	return s, nil
}

func (s *AttendanceStore) RecordsFor(_ context.Context, date string) ([]ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Record, len(s.doc.RecordsByDate[date]))
	copy(out, s.doc.RecordsByDate[date])
	return out, nil
}

func (s *AttendanceStore) AppendRecord(_ context.Context, date string, rec ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneDay(date)
	next.RecordsByDate[date] = append(next.RecordsByDate[date], rec)
	if err := writeDocument(s.path, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *AttendanceStore) CloseOpenRecord(_ context.Context, date string, studentID int64, exit time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneDay(date)
	records := next.RecordsByDate[date]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].StudentID != studentID || !records[i].Open() {
			continue
		}
		records[i].ExitTime = exit
		if err := writeDocument(s.path, next); err != nil {
			return false, err
		}
		s.doc = next
		return true, nil
	}
	return false, nil
}

func (s *AttendanceStore) ActiveDate(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ActiveDate, nil
}

func (s *AttendanceStore) SetActiveDate(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc
	next.ActiveDate = date
	if err := writeDocument(s.path, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// cloneDay returns a document whose slice for date is safe to mutate
// without touching the committed state.
func (s *AttendanceStore) cloneDay(date string) attendanceDocument {
	next := s.doc
	next.RecordsByDate = make(map[string][]ledger.Record, len(s.doc.RecordsByDate))
	for d, records := range s.doc.RecordsByDate {
		next.RecordsByDate[d] = records
	}
	next.RecordsByDate[date] = append([]ledger.Record(nil), s.doc.RecordsByDate[date]...)
	return next
}
