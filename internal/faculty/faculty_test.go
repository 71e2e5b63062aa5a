package faculty

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureDefaultUserAndVerify(t *testing.T) {
	store, err := Open(t.TempDir(), "reset-key")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	ctx := context.Background()

	if err := store.EnsureDefaultUser(ctx, "admin", "secret"); err != nil {
		t.Fatalf("ensure default user failed: %v", err)
	}

	if err := store.VerifyUser(ctx, "admin", "secret"); err != nil {
		t.Errorf("expected valid credentials, got %v", err)
	}
	if err := store.VerifyUser(ctx, "ADMIN", "secret"); err != nil {
		t.Errorf("usernames should be case-insensitive, got %v", err)
	}
	if err := store.VerifyUser(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := store.VerifyUser(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestEnsureDefaultUser_KeepsExistingPassword(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir, "reset-key")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureDefaultUser(ctx, "admin", "original"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdatePassword(ctx, "admin", "changed", "reset-key"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// A restart must not clobber the changed password.
	reopened, err := Open(dir, "reset-key")
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.EnsureDefaultUser(ctx, "admin", "original"); err != nil {
		t.Fatal(err)
	}
	if err := reopened.VerifyUser(ctx, "admin", "changed"); err != nil {
		t.Errorf("expected changed password to survive restart, got %v", err)
	}
	if err := reopened.VerifyUser(ctx, "admin", "original"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected original password to be rejected, got %v", err)
	}
}

func TestUpdatePassword_RequiresResetKey(t *testing.T) {
	store, err := Open(t.TempDir(), "reset-key")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.EnsureDefaultUser(ctx, "admin", "secret"); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdatePassword(ctx, "admin", "new", "wrong-key"); !errors.Is(err, ErrInvalidResetKey) {
		t.Errorf("expected ErrInvalidResetKey, got %v", err)
	}
	if err := store.VerifyUser(ctx, "admin", "secret"); err != nil {
		t.Errorf("password must be unchanged after failed reset, got %v", err)
	}
}

func TestUpdatePassword_DisabledWithoutKey(t *testing.T) {
	store, err := Open(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.EnsureDefaultUser(ctx, "admin", "secret"); err != nil {
		t.Fatal(err)
	}

	// Empty configured key disables resets even for an empty input key.
	if err := store.UpdatePassword(ctx, "admin", "new", ""); !errors.Is(err, ErrInvalidResetKey) {
		t.Errorf("expected ErrInvalidResetKey, got %v", err)
	}
}

func TestUpdatePassword_UnknownUser(t *testing.T) {
	store, err := Open(t.TempDir(), "reset-key")
	if err != nil {
		t.Fatal(err)
	}

	err = store.UpdatePassword(context.Background(), "nobody", "new", "reset-key")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
