package attendance

import "time"

// OutcomeKind is the closed set of recognition decisions. Business
// results are values, never errors; only infrastructure faults travel
// the error channel.
type OutcomeKind string

const (
	// KindEntry means a new open record was created.
	KindEntry OutcomeKind = "entry"
	// KindExit means the student's open record was closed.
	KindExit OutcomeKind = "exit"
	// KindCooldown means the scan arrived inside the cooldown window;
	// the ledger was not touched.
	KindCooldown OutcomeKind = "cooldown"
	// KindUnknown means no enrolled student matched the probe.
	KindUnknown OutcomeKind = "unknown"
	// KindNoFace means the upstream encoder could not derive a vector.
	KindNoFace OutcomeKind = "no_face"
)

// Outcome is the result of processing one scan. Fields beyond Kind and
// EventID are populated only for the variants they apply to.
type Outcome struct {
	Kind       OutcomeKind `json:"status"`
	EventID    string      `json:"event_id"`
	StudentID  int64       `json:"student_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	RollNumber string      `json:"roll_number,omitempty"`
	Department string      `json:"department,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitzero"`
	Date       string      `json:"date,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Recognized reports whether the outcome identifies a student.
func (o Outcome) Recognized() bool {
	switch o.Kind {
	case KindEntry, KindExit, KindCooldown:
		return true
	case KindUnknown, KindNoFace:
		return false
	}
	return false
}
