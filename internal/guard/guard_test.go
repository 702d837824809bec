package guard

import (
	"errors"
	"testing"
	"time"

	"homeline/pkg/domain"
	"homeline/pkg/store"
)

func TestHasPermissionSelfAndPrimary(t *testing.T) {
	st := store.NewMemoryStore()
	g := New(st)

	alex := domain.User{ID: "u-alex", Name: "Alex"}
	mom := domain.User{ID: "u-mom", Name: "Mom", IsPrimaryUser: true}

	if !g.HasPermission(alex, alex.ID, domain.PermLocation) {
		t.Fatal("self access should always be allowed")
	}
	if !g.HasPermission(mom, alex.ID, domain.PermLocation) {
		t.Fatal("primary user should bypass permission rows")
	}
	if g.HasPermission(alex, mom.ID, domain.PermLocation) {
		t.Fatal("no grant row should mean deny")
	}
}

func TestHasPermissionExpiry(t *testing.T) {
	st := store.NewMemoryStore()
	g := New(st)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	alex := domain.User{ID: "u-alex", Name: "Alex"}

	future := now.Add(time.Hour)
	if err := g.Grant("u-mom", alex.ID, domain.PermETA, &future); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !g.HasPermission(alex, "u-mom", domain.PermETA) {
		t.Fatal("unexpired grant should allow")
	}

	// Exactly at the expiration instant the grant no longer applies.
	g.now = func() time.Time { return future }
	if g.HasPermission(alex, "u-mom", domain.PermETA) {
		t.Fatal("grant at its expiration instant should deny")
	}
	g.now = func() time.Time { return future.Add(time.Nanosecond) }
	if g.HasPermission(alex, "u-mom", domain.PermETA) {
		t.Fatal("grant past its expiration should deny")
	}

	// The row itself is untouched; only evaluation changes.
	perm, ok, err := st.GetPermission(alex.ID, "u-mom", domain.PermETA)
	if err != nil || !ok {
		t.Fatalf("expected stored row, ok=%v err=%v", ok, err)
	}
	if !perm.IsActive {
		t.Fatal("expiry should not deactivate the stored row")
	}
}

func TestHasPermissionNoExpiry(t *testing.T) {
	st := store.NewMemoryStore()
	g := New(st)

	alex := domain.User{ID: "u-alex", Name: "Alex"}
	if err := g.Grant("u-mom", alex.ID, domain.PermLocation, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !g.HasPermission(alex, "u-mom", domain.PermLocation) {
		t.Fatal("open-ended grant should allow")
	}
	if g.HasPermission(alex, "u-mom", domain.PermETA) {
		t.Fatal("grant of one kind should not cover another")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	g := New(st)

	alex := domain.User{ID: "u-alex", Name: "Alex"}
	if err := g.Grant("u-mom", alex.ID, domain.PermLocation, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := g.Revoke("u-mom", alex.ID, domain.PermLocation); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := g.Revoke("u-mom", alex.ID, domain.PermLocation); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if g.HasPermission(alex, "u-mom", domain.PermLocation) {
		t.Fatal("revoked grant should deny")
	}
	perm, ok, err := st.GetPermission(alex.ID, "u-mom", domain.PermLocation)
	if err != nil || !ok {
		t.Fatalf("revoke should keep the row, ok=%v err=%v", ok, err)
	}
	if perm.IsActive {
		t.Fatal("revoked row should be inactive")
	}
}

func TestRevokeWithoutGrantWritesInactiveRow(t *testing.T) {
	st := store.NewMemoryStore()
	g := New(st)

	if err := g.Revoke("u-mom", "u-alex", domain.PermETA); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	perm, ok, err := st.GetPermission("u-alex", "u-mom", domain.PermETA)
	if err != nil || !ok {
		t.Fatalf("expected inactive row, ok=%v err=%v", ok, err)
	}
	if perm.IsActive {
		t.Fatal("row created by revoke must be inactive")
	}
}

type failingPermStore struct{}

func (failingPermStore) UpsertPermission(domain.Permission) error { return errors.New("db down") }
func (failingPermStore) GetPermission(string, string, domain.PermissionKind) (domain.Permission, bool, error) {
	return domain.Permission{}, false, errors.New("db down")
}

func TestHasPermissionFailsClosed(t *testing.T) {
	g := New(failingPermStore{})
	alex := domain.User{ID: "u-alex", Name: "Alex"}
	if g.HasPermission(alex, "u-mom", domain.PermLocation) {
		t.Fatal("storage failure must deny, not allow")
	}
}
