package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const activeDateKey = "active_date"

// AttendanceStore persists daily attendance records.
type AttendanceStore struct {
	pool *Pool
}

func NewAttendanceStore(pool *Pool) *AttendanceStore {
	return &AttendanceStore{pool: pool}
}

func (s *AttendanceStore) RecordsFor(ctx context.Context, date string) ([]ledger.Record, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT student_id, name, roll_number, department, entry_time, exit_time, confidence
		FROM attendance_records
		WHERE day = $1
		ORDER BY id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		var exit sql.NullTime
		if err := rows.Scan(
			&rec.StudentID, &rec.Name, &rec.RollNumber,
			&rec.Department, &rec.EntryTime, &exit, &rec.Confidence,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.Date = date
		if exit.Valid {
			rec.ExitTime = exit.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

func (s *AttendanceStore) AppendRecord(ctx context.Context, date string, rec ledger.Record) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO attendance_records (day, student_id, name, roll_number, department, entry_time, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, date, rec.StudentID, rec.Name, rec.RollNumber, rec.Department, rec.EntryTime, rec.Confidence)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func (s *AttendanceStore) CloseOpenRecord(ctx context.Context, date string, studentID int64, exit time.Time) (bool, error) {
	result, err := s.pool.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET exit_time = $1
		WHERE id = (
			SELECT id FROM attendance_records
			WHERE day = $2 AND student_id = $3 AND exit_time IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
	`, exit, date, studentID)
	if err != nil {
		return false, fmt.Errorf("close attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close attendance record: %w", err)
	}
	return affected > 0, nil
}

func (s *AttendanceStore) ActiveDate(ctx context.Context) (string, error) {
	var value string
	err := s.pool.db.QueryRowContext(ctx,
		"SELECT value FROM ledger_settings WHERE key = $1", activeDateKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query active date: %w", err)
	}
	return value, nil
}

func (s *AttendanceStore) SetActiveDate(ctx context.Context, date string) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO ledger_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, activeDateKey, date)
	if err != nil {
		return fmt.Errorf("set active date: %w", err)
	}
	return nil
}
