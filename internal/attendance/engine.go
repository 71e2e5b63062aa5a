// Package attendance implements the decision engine: it matches a probe
// vector against the registry, applies the cooldown and entry/exit
// toggle rules, and commits the resulting ledger mutation.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// ErrBadDimension is returned when a probe vector does not have the
// configured embedding dimension. No ledger mutation is attempted.
var ErrBadDimension = errors.New("probe vector has wrong dimension")

// Notifier receives decision events for external hardware feedback.
// Implementations must be safe for concurrent use; failures are logged
// by the engine and never affect the ledger outcome.
type Notifier interface {
	Notify(ctx context.Context, kind OutcomeKind) error
}

// Engine orchestrates recognition scans. A single mutex serializes the
// full read-decide-write cycle so two near-simultaneous scans cannot
// both observe the same ledger state and double-apply a transition.
type Engine struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	matcher  *facematch.Matcher
	cooldown time.Duration
	dim      int
	notifier Notifier

	now func() time.Time

	mu sync.Mutex
}

// New creates a decision engine. dim is the expected probe dimension;
// zero disables the check. notifier may be nil.
func New(reg *registry.Registry, led *ledger.Ledger, matcher *facematch.Matcher, cooldown time.Duration, dim int, notifier Notifier) *Engine {
	return &Engine{
		registry: reg,
		ledger:   led,
		matcher:  matcher,
		cooldown: cooldown,
		dim:      dim,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Recognize processes one scan of a probe vector against the given
// calendar date. Unknown and cooldown scans never mutate the ledger.
func (e *Engine) Recognize(ctx context.Context, probe []float32, date string) (Outcome, error) {
	if len(probe) == 0 {
		return e.noFaceOutcome(ctx), nil
	}
	if e.dim > 0 && len(probe) != e.dim {
		return Outcome{}, fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(probe), e.dim)
	}
	if err := ledger.ValidateDate(date); err != nil {
		return Outcome{}, err
	}

	match := e.match(probe)
	if match.Kind != facematch.KindMatched {
		outcome := Outcome{
			Kind:    KindUnknown,
			EventID: uuid.NewString(),
			Date:    date,
		}
		if match.Kind == facematch.KindNoCandidate {
			outcome.Message = "No registered students."
		}
		e.notify(ctx, outcome.Kind)
		return outcome, nil
	}

	student, err := e.registry.Get(match.ID)
	if err != nil {
		// Matched profile vanished between snapshot and lookup.
		outcome := Outcome{
			Kind:    KindUnknown,
			EventID: uuid.NewString(),
			Date:    date,
			Message: "Matched profile no longer exists.",
		}
		e.notify(ctx, outcome.Kind)
		return outcome, nil
	}

	outcome, err := e.applyTransition(ctx, student, match.Confidence, date)
	if err != nil {
		return Outcome{}, err
	}

	e.notify(ctx, outcome.Kind)
	return outcome, nil
}

// match runs the nearest-neighbor search, through the HNSW graph when
// the roster is large enough and by linear scan otherwise. Both paths
// share the distance metric and the confidence law.
func (e *Engine) match(probe []float32) facematch.Result {
	if idx := e.registry.Index(); idx != nil && idx.UseGraph() {
		id, dist, ok := idx.Nearest(probe)
		if !ok {
			return facematch.Result{Kind: facematch.KindNoCandidate}
		}
		if dist >= e.matcher.Tolerance {
			return facematch.Result{Kind: facematch.KindUnmatched, Distance: dist}
		}
		student, err := e.registry.Get(id)
		if err != nil {
			return facematch.Result{Kind: facematch.KindNoCandidate}
		}
		return facematch.Result{
			Kind:       facematch.KindMatched,
			ID:         id,
			Name:       student.Name,
			Distance:   dist,
			Confidence: facematch.Confidence(dist),
		}
	}
	return e.matcher.Match(probe, e.registry.Candidates())
}

// applyTransition holds the writer critical section: cooldown gate, then
// the NoRecord/Present/Departed toggle, then the durable write.
func (e *Engine) applyTransition(ctx context.Context, student registry.Identity, confidence float64, date string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	latest, exists, err := e.ledger.LatestRecord(ctx, date, student.ID)
	if err != nil {
		return Outcome{}, err
	}

	// Cooldown applies to the last event regardless of the pending
	// transition, so a just-departed student cannot bounce back in.
	if exists && now.Sub(latest.LastEvent()) < e.cooldown {
		return Outcome{
			Kind:       KindCooldown,
			EventID:    uuid.NewString(),
			StudentID:  student.ID,
			Name:       student.Name,
			RollNumber: student.RollNumber,
			Department: student.Department,
			Confidence: confidence,
			Timestamp:  latest.LastEvent(),
			Date:       date,
			Message:    "Cooldown active.",
		}, nil
	}

	if exists && latest.Open() {
		closed, err := e.ledger.CloseOpen(ctx, date, student.ID, now)
		if err != nil {
			return Outcome{}, err
		}
		if !closed {
			return Outcome{}, fmt.Errorf("open record for student %d on %s disappeared", student.ID, date)
		}
		return Outcome{
			Kind:       KindExit,
			EventID:    uuid.NewString(),
			StudentID:  student.ID,
			Name:       student.Name,
			RollNumber: student.RollNumber,
			Department: student.Department,
			Confidence: confidence,
			Timestamp:  now,
			Date:       date,
		}, nil
	}

	rec := ledger.Record{
		StudentID:  student.ID,
		Name:       student.Name,
		RollNumber: student.RollNumber,
		Department: student.Department,
		EntryTime:  now,
		Confidence: confidence,
	}
	if err := e.ledger.Append(ctx, date, rec); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind:       KindEntry,
		EventID:    uuid.NewString(),
		StudentID:  student.ID,
		Name:       student.Name,
		RollNumber: student.RollNumber,
		Department: student.Department,
		Confidence: confidence,
		Timestamp:  now,
		Date:       date,
	}, nil
}

// MarkNoFace reports a scan where the encoder found no face. The ledger
// is never touched; the buzzer still gives feedback.
func (e *Engine) MarkNoFace(ctx context.Context) Outcome {
	return e.noFaceOutcome(ctx)
}

func (e *Engine) noFaceOutcome(ctx context.Context) Outcome {
	outcome := Outcome{Kind: KindNoFace, EventID: uuid.NewString()}
	e.notify(ctx, outcome.Kind)
	return outcome
}

// Register enrolls a student with the face vector derived upstream.
func (e *Engine) Register(ctx context.Context, identity registry.Identity, vector []float32) (registry.Identity, error) {
	if len(vector) == 0 {
		return registry.Identity{}, errors.New("registration requires a face vector")
	}
	if e.dim > 0 && len(vector) != e.dim {
		return registry.Identity{}, fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(vector), e.dim)
	}

	identity.Vectors = [][]float32{vector}
	return e.registry.Register(ctx, identity)
}

// DeleteIdentity removes a student. Historical ledger records keep their
// denormalized snapshot.
func (e *Engine) DeleteIdentity(ctx context.Context, id int64) error {
	return e.registry.Delete(ctx, id)
}

// notify emits the decision event to the hardware notifier without
// blocking the caller. The notifier owns its own timeout; errors are
// logged and dropped.
func (e *Engine) notify(_ context.Context, kind OutcomeKind) {
	if e.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.notifier.Notify(ctx, kind); err != nil {
			log.Printf("notifier failed for %s: %v", kind, err)
		}
	}()
}
