// Package faculty manages the staff accounts that guard the
// administrative endpoints. Accounts live in a small JSON file next to
// the other data files; passwords are stored as bcrypt hashes.
package faculty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong
	// passwords so responses do not leak which one failed.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidResetKey reports a password reset attempt with the
	// wrong reset key.
	ErrInvalidResetKey = errors.New("invalid reset key")
)

const usersFileName = "faculty.json"

type user struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type userDocument struct {
	Users []user `json:"users"`
}

// Store keeps faculty accounts in faculty.json inside the data
// directory.
type Store struct {
	path     string
	resetKey string
	mu       sync.Mutex
	doc      userDocument
}

// Open loads the faculty accounts from dataDir. resetKey guards the
// password reset operation; an empty key disables resets.
func Open(dataDir, resetKey string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	s := &Store{path: filepath.Join(dataDir, usersFileName), resetKey: resetKey}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", s.path, err)
	}
	return s, nil
}

// EnsureDefaultUser creates the configured admin account on first
// start. An existing account with the same username is left untouched
// so password changes survive restarts.
func (s *Store) EnsureDefaultUser(_ context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(username) != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	now := time.Now().UTC()
	next := s.doc
	next.Users = append(append([]user(nil), s.doc.Users...), user{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err := s.writeLocked(next); err != nil {
		return err
	}
	return nil
}

// VerifyUser checks a username/password pair.
func (s *Store) VerifyUser(_ context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findLocked(username)
	if u == nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// UpdatePassword resets a user's password after validating the reset
// key.
func (s *Store) UpdatePassword(_ context.Context, username, newPassword, resetKey string) error {
	if s.resetKey == "" || resetKey != s.resetKey {
		return ErrInvalidResetKey
	}
	if newPassword == "" {
		return errors.New("new password must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	next := s.doc
	next.Users = append([]user(nil), s.doc.Users...)
	for i := range next.Users {
		if !strings.EqualFold(next.Users[i].Username, username) {
			continue
		}
		next.Users[i].PasswordHash = string(hash)
		next.Users[i].UpdatedAt = time.Now().UTC()
		if err := s.writeLocked(next); err != nil {
			return err
		}
		return nil
	}
	return ErrInvalidCredentials
}

func (s *Store) findLocked(username string) *user {
	for i := range s.doc.Users {
		if strings.EqualFold(s.doc.Users[i].Username, username) {
			return &s.doc.Users[i]
		}
	}
	return nil
}

// writeLocked persists next atomically and commits it on success.
func (s *Store) writeLocked(next userDocument) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal accounts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), usersFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write accounts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace accounts file: %w", err)
	}

	s.doc = next
	return nil
}
