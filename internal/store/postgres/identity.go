package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const uniqueViolation = "23505"

// IdentityStore persists student profiles and their embeddings.
type IdentityStore struct {
	pool *Pool
}

func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

func (s *IdentityStore) ListIdentities(ctx context.Context) ([]registry.Identity, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT id, name, roll_number, department, created_at, updated_at
		FROM students
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []registry.Identity
	index := make(map[int64]int)
	for rows.Next() {
		var student registry.Identity
		if err := rows.Scan(
			&student.ID, &student.Name, &student.RollNumber,
			&student.Department, &student.CreatedAt, &student.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		index[student.ID] = len(students)
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	embeddings, err := s.pool.db.QueryContext(ctx, `
		SELECT student_id, embedding
		FROM student_embeddings
		ORDER BY student_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer embeddings.Close()

	for embeddings.Next() {
		var studentID int64
		var vec pgvector.Vector
		if err := embeddings.Scan(&studentID, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if i, ok := index[studentID]; ok {
			students[i].Vectors = append(students[i].Vectors, vec.Slice())
		}
	}
	if err := embeddings.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return students, nil
}

func (s *IdentityStore) InsertIdentity(ctx context.Context, identity *registry.Identity) error {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO students (name, roll_number, department)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, identity.Name, identity.RollNumber, identity.Department).
		Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return registry.ErrDuplicateRoll
		}
		return fmt.Errorf("insert student: %w", err)
	}

	for _, vector := range identity.Vectors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO student_embeddings (student_id, embedding)
			VALUES ($1, $2)
		`, identity.ID, pgvector.NewVector(vector)); err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student insert: %w", err)
	}
	return nil
}

func (s *IdentityStore) DeleteIdentity(ctx context.Context, id int64) error {
	result, err := s.pool.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// FindSimilar returns the IDs and distances of the closest enrolled
// embeddings, ordered by L2 distance. The registry prefers its
// in-memory index; this query serves cold starts and ad-hoc checks.
func (s *IdentityStore) FindSimilar(ctx context.Context, probe []float32, limit int) ([]int64, []float64, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT student_id, embedding <-> $1::vector AS distance
		FROM student_embeddings
		ORDER BY distance
		LIMIT $2
	`, pgvector.NewVector(probe), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var distances []float64
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, nil, fmt.Errorf("scan similar embedding: %w", err)
		}
		ids = append(ids, id)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar embeddings: %w", err)
	}
	return ids, distances, nil
}
