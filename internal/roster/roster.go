// Package roster imports student profiles from the school management
// system, which runs on MariaDB. Imported students still need a face
// enrollment before recognition can match them.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// Pool manages a MariaDB connection pool to the school database.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Student is a roster row from the school database.
type Student struct {
	Name       string
	RollNumber string
	Department string
}

// ListStudents reads the full roster from the school database.
func (p *Pool) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, roll_number, COALESCE(department, '')
		FROM students
		ORDER BY roll_number
	`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.Name, &s.RollNumber, &s.Department); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return students, nil
}

// Result summarizes an import run.
type Result struct {
	Imported int
	Skipped  int
}

// Importer copies roster rows into the registry.
type Importer struct {
	registry *registry.Registry
}

func NewImporter(reg *registry.Registry) *Importer {
	return &Importer{registry: reg}
}

// Import registers every roster student that is not yet enrolled.
// Roll numbers already in the registry and rows with empty names are
// skipped. progress is called once per processed row and may be nil.
func (im *Importer) Import(ctx context.Context, students []Student, progress func()) (Result, error) {
	var result Result
	for _, student := range students {
		if progress != nil {
			progress()
		}

		name := strings.TrimSpace(student.Name)
		roll := strings.TrimSpace(student.RollNumber)
		if name == "" || roll == "" {
			result.Skipped++
			continue
		}
		if facematch.NormalizeName(name) == "" {
			result.Skipped++
			continue
		}

		_, err := im.registry.Register(ctx, registry.Identity{
			Name:       name,
			RollNumber: roll,
			Department: strings.TrimSpace(student.Department),
		})
		if errors.Is(err, registry.ErrDuplicateRoll) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("import %s: %w", roll, err)
		}
		result.Imported++
	}
	return result, nil
}
