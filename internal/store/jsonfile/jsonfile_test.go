package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

func TestIdentityStore_InsertAssignsSequentialIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenIdentityStore(dir)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	ctx := context.Background()
	a := registry.Identity{Name: "Alice", RollNumber: "CS-1"}
	b := registry.Identity{Name: "Bob", RollNumber: "CS-2"}
	if err := store.InsertIdentity(ctx, &a); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.InsertIdentity(ctx, &b); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("expected sequential IDs 1,2, got %d,%d", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped on insert")
	}
}

func TestIdentityStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenIdentityStore(dir)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	alice := registry.Identity{
		Name:       "Alice",
		RollNumber: "CS-1",
		Vectors:    [][]float32{{0.1, 0.2}},
	}
	if err := store.InsertIdentity(ctx, &alice); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	reopened, err := OpenIdentityStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	students, err := reopened.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(students) != 1 || students[0].Name != "Alice" {
		t.Fatalf("expected Alice to survive reopen, got %+v", students)
	}
	if len(students[0].Vectors) != 1 || len(students[0].Vectors[0]) != 2 {
		t.Errorf("expected embedding to survive reopen, got %+v", students[0].Vectors)
	}

	// IDs keep counting after a reopen, deleted IDs are never reused.
	bob := registry.Identity{Name: "Bob", RollNumber: "CS-2"}
	if err := reopened.InsertIdentity(ctx, &bob); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if bob.ID != 2 {
		t.Errorf("expected ID 2 after reopen, got %d", bob.ID)
	}
}

func TestIdentityStore_DeleteUnknown(t *testing.T) {
	store, err := OpenIdentityStore(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if err := store.DeleteIdentity(context.Background(), 42); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityStore_DeleteDoesNotReuseIDs(t *testing.T) {
	store, err := OpenIdentityStore(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	ctx := context.Background()

	a := registry.Identity{Name: "Alice", RollNumber: "CS-1"}
	if err := store.InsertIdentity(ctx, &a); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteIdentity(ctx, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	b := registry.Identity{Name: "Bob", RollNumber: "CS-2"}
	if err := store.InsertIdentity(ctx, &b); err != nil {
		t.Fatal(err)
	}
	if b.ID != 2 {
		t.Errorf("expected fresh ID 2, got %d", b.ID)
	}
}

func TestIdentityStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, identityFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := OpenIdentityStore(dir)
	if err != nil {
		t.Fatalf("open failed on corrupt file: %v", err)
	}
	students, err := store.ListIdentities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 0 {
		t.Errorf("expected empty store, got %d students", len(students))
	}
}

func TestIdentityStore_WriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenIdentityStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	a := registry.Identity{Name: "Alice", RollNumber: "CS-1"}
	if err := store.InsertIdentity(ctx, &a); err != nil {
		t.Fatal(err)
	}

	// Only the final document may exist, never a leftover temp file.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", entry.Name())
		}
	}

	// The on-disk document must be complete, parseable JSON.
	data, err := os.ReadFile(filepath.Join(dir, identityFileName))
	if err != nil {
		t.Fatal(err)
	}
	var doc identityDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("on-disk document not parseable: %v", err)
	}
	if doc.NextID != 1 || len(doc.Students) != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
}

func testRecord(studentID int64, name, date string, entry time.Time) ledger.Record {
	return ledger.Record{
		StudentID:  studentID,
		Name:       name,
		RollNumber: "CS-1",
		Date:       date,
		EntryTime:  entry,
		Confidence: 80,
	}
}

func TestAttendanceStore_AppendAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	entry := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	store, err := OpenAttendanceStore(dir)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := store.AppendRecord(ctx, "2026-03-02", testRecord(1, "Alice", "2026-03-02", entry)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reopened, err := OpenAttendanceStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	records, err := reopened.RecordsFor(ctx, "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Name != "Alice" {
		t.Fatalf("expected Alice's record to survive reopen, got %+v", records)
	}
	if !records[0].Open() {
		t.Error("record without exit time should be open")
	}
	if !records[0].EntryTime.Equal(entry) {
		t.Errorf("entry time mangled: %v", records[0].EntryTime)
	}
}

func TestAttendanceStore_CloseOpenRecord(t *testing.T) {
	ctx := context.Background()
	store, err := OpenAttendanceStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entry := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := store.AppendRecord(ctx, "2026-03-02", testRecord(1, "Alice", "2026-03-02", entry)); err != nil {
		t.Fatal(err)
	}

	closed, err := store.CloseOpenRecord(ctx, "2026-03-02", 1, entry.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !closed {
		t.Fatal("expected an open record to be closed")
	}

	records, _ := store.RecordsFor(ctx, "2026-03-02")
	if records[0].Open() {
		t.Error("record should be closed")
	}

	// Nothing left to close.
	closed, err = store.CloseOpenRecord(ctx, "2026-03-02", 1, entry.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if closed {
		t.Error("expected no open record on second close")
	}
}

func TestAttendanceStore_CloseIgnoresOtherDates(t *testing.T) {
	ctx := context.Background()
	store, err := OpenAttendanceStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entry := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := store.AppendRecord(ctx, "2026-03-02", testRecord(1, "Alice", "2026-03-02", entry)); err != nil {
		t.Fatal(err)
	}

	closed, err := store.CloseOpenRecord(ctx, "2026-03-03", 1, entry.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if closed {
		t.Error("close must not cross date boundaries")
	}
}

func TestAttendanceStore_ActiveDateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenAttendanceStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	date, err := store.ActiveDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if date != "" {
		t.Errorf("expected empty active date on fresh store, got %q", date)
	}

	if err := store.SetActiveDate(ctx, "2026-03-05"); err != nil {
		t.Fatalf("set active date failed: %v", err)
	}

	reopened, err := OpenAttendanceStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	date, err = reopened.ActiveDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if date != "2026-03-05" {
		t.Errorf("expected active date to survive reopen, got %q", date)
	}
}

func TestAttendanceStore_RecordsForReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := OpenAttendanceStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entry := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := store.AppendRecord(ctx, "2026-03-02", testRecord(1, "Alice", "2026-03-02", entry)); err != nil {
		t.Fatal(err)
	}

	records, _ := store.RecordsFor(ctx, "2026-03-02")
	records[0].Name = "Mallory"

	fresh, _ := store.RecordsFor(ctx, "2026-03-02")
	if fresh[0].Name != "Alice" {
		t.Error("callers must not be able to mutate stored records")
	}
}
