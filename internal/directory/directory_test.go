package directory

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "directory.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store
}

func TestLookup_Unregistered(t *testing.T) {
	store := openTestStore(t)

	user, err := store.Lookup("15551234567")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if user != nil {
		t.Errorf("Lookup() = %+v, want nil for unregistered sender", user)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	store := openTestStore(t)

	if err := store.Register("15551234567", "sheet-abc", "user@example.com"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := store.Lookup("15551234567")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if user == nil {
		t.Fatal("Lookup() = nil, want registered user")
	}
	if user.SpreadsheetID != "sheet-abc" {
		t.Errorf("SpreadsheetID = %q", user.SpreadsheetID)
	}
	if user.Email != "user@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
}

func TestRegister_DuplicatePhoneRejected(t *testing.T) {
	store := openTestStore(t)

	if err := store.Register("15551234567", "sheet-1", "a@example.com"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := store.Register("15551234567", "sheet-2", "b@example.com"); err == nil {
		t.Error("Register() should reject a second ledger for the same phone number")
	}
}
