// Package registry holds the enrolled student identities and their face
// vectors, backed by a persistent store with an in-memory mirror.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var (
	// ErrNotFound is returned when a student id is not enrolled.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicateRoll is returned when registering a roll number that
	// already exists. Re-registration is rejected, not merged.
	ErrDuplicateRoll = errors.New("student with this roll number already exists")
)

// Identity is an enrolled student. Vectors holds the face embeddings
// captured at registration; roster-imported students start with none.
type Identity struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	RollNumber string      `json:"roll_number"`
	Department string      `json:"department"`
	Vectors    [][]float32 `json:"vectors"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Store is the persistence contract for identities. Implementations
// serialize writes; Insert assigns the ID and timestamps.
type Store interface {
	ListIdentities(ctx context.Context) ([]Identity, error)
	InsertIdentity(ctx context.Context, identity *Identity) error
	DeleteIdentity(ctx context.Context, id int64) error
}

// Registry mirrors the identity store in memory so that matching never
// touches the disk. All mutations go through the store first; the mirror
// is only updated after a successful durable write.
type Registry struct {
	store Store

	mu         sync.RWMutex
	identities []Identity
	index      *VectorIndex
}

// New creates a registry over the given store. Call Load before use.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Load populates the in-memory mirror from the store and rebuilds the
// vector index. Safe to call again to reload after external changes.
func (r *Registry) Load(ctx context.Context) error {
	identities, err := r.store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	index := NewVectorIndex()
	if err := index.Build(identities); err != nil {
		return fmt.Errorf("building vector index: %w", err)
	}

	r.mu.Lock()
	r.identities = identities
	r.index = index
	r.mu.Unlock()
	return nil
}

// Reload is an alias for Load, kept for call sites that re-sync after
// roster imports.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Register enrolls a new student. The roll number must be unique
// (case-insensitive); duplicates are rejected with ErrDuplicateRoll.
func (r *Registry) Register(ctx context.Context, identity Identity) (Identity, error) {
	identity.Name = strings.TrimSpace(identity.Name)
	identity.RollNumber = strings.TrimSpace(identity.RollNumber)
	identity.Department = strings.TrimSpace(identity.Department)

	r.mu.RLock()
	for i := range r.identities {
		if strings.EqualFold(r.identities[i].RollNumber, identity.RollNumber) {
			r.mu.RUnlock()
			return Identity{}, ErrDuplicateRoll
		}
	}
	r.mu.RUnlock()

	if err := r.store.InsertIdentity(ctx, &identity); err != nil {
		if errors.Is(err, ErrDuplicateRoll) {
			return Identity{}, ErrDuplicateRoll
		}
		return Identity{}, fmt.Errorf("inserting identity: %w", err)
	}

	r.mu.Lock()
	r.identities = append(r.identities, identity)
	if r.index != nil {
		r.index.Add(identity)
	}
	r.mu.Unlock()
	return identity, nil
}

// Delete removes a student from the registry. Historical ledger records
// keep their denormalized name snapshot and are never touched.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if err := r.store.DeleteIdentity(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	for i := range r.identities {
		if r.identities[i].ID == id {
			r.identities = append(r.identities[:i], r.identities[i+1:]...)
			break
		}
	}
	if r.index != nil {
		r.index.Remove(id)
	}
	r.mu.Unlock()
	return nil
}

// Get returns the identity with the given id, or ErrNotFound.
func (r *Registry) Get(id int64) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.identities {
		if r.identities[i].ID == id {
			return r.identities[i], nil
		}
	}
	return Identity{}, ErrNotFound
}

// List returns a copy of all enrolled identities in registration order.
func (r *Registry) List() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identity, len(r.identities))
	copy(out, r.identities)
	return out
}

// Count returns the number of enrolled identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// Candidates returns the enrolled identities as matcher candidates,
// preserving registration order so tie-breaking stays deterministic.
func (r *Registry) Candidates() []facematch.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]facematch.Candidate, len(r.identities))
	for i := range r.identities {
		out[i] = facematch.Candidate{
			ID:      r.identities[i].ID,
			Name:    r.identities[i].Name,
			Vectors: r.identities[i].Vectors,
		}
	}
	return out
}

// Index returns the vector index, or nil before Load.
func (r *Registry) Index() *VectorIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}
