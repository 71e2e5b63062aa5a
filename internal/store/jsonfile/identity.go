// Package jsonfile persists the student registry and the attendance
// ledger as whole JSON documents on disk. Every mutation rewrites the
// full document through a temp file and an atomic rename, so a crash
// mid-write never leaves a torn file behind.
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

	"github.com/kozaktomas/face-attendance/internal/registry"
)

const identityFileName = "students.json"

type identityDocument struct {
	NextID   int64               `json:"next_id"`
	Students []registry.Identity `json:"students"`
}

// IdentityStore keeps the registry in students.json inside the data
// directory. The document is cached in memory; reads never touch disk
// after Open.
type IdentityStore struct {
	path string
	mu   sync.Mutex
	doc  identityDocument
}

// OpenIdentityStore loads students.json from dataDir, creating the
// directory if needed. A missing or unreadable file starts the store
// empty rather than failing, so a fresh deployment needs no seed file.
func OpenIdentityStore(dataDir string) (*IdentityStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	s := &IdentityStore{path: filepath.Join(dataDir, identityFileName)}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		log.Printf("ignoring corrupt %s, starting empty: %v", s.path, err)
		s.doc = identityDocument{}
	}
	return s, nil
}

func (s *IdentityStore) ListIdentities(_ context.Context) ([]registry.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]registry.Identity, len(s.doc.Students))
	copy(out, s.doc.Students)
	return out, nil
}

func (s *IdentityStore) InsertIdentity(_ context.Context, identity *registry.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity.ID = s.doc.NextID + 1
	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	next := s.doc
	next.NextID = identity.ID
	next.Students = append(append([]registry.Identity(nil), s.doc.Students...), *identity)
	if err := writeDocument(s.path, next); err != nil {
		identity.ID = 0
		return err
	}
	s.doc = next
	return nil
}

func (s *IdentityStore) DeleteIdentity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]registry.Identity, 0, len(s.doc.Students))
	found := false
	for _, student := range s.doc.Students {
		if student.ID == id {
			found = true
			continue
		}
		kept = append(kept, student)
	}
	if !found {
		return registry.ErrNotFound
	}

	next := s.doc
	next.Students = kept
	if err := writeDocument(s.path, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// writeDocument marshals doc and replaces path atomically. The temp
// file lives in the same directory so the rename stays on one
// filesystem.
func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
