// Package guard decides whether a user may read or act on another user's
// protected data.
package guard

import (
	"log/slog"
	"time"

	"homeline/internal/util"
	"homeline/pkg/domain"
)

// PermissionStore is the slice of the store the guard needs.
type PermissionStore interface {
	UpsertPermission(domain.Permission) error
	GetPermission(userID, grantorID string, kind domain.PermissionKind) (domain.Permission, bool, error)
}

// Guard evaluates and manages cross-user permissions.
type Guard struct {
	store PermissionStore
	now   func() time.Time
}

// New constructs a guard over the given store.
func New(store PermissionStore) *Guard {
	return &Guard{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// HasPermission reports whether requesting may access targetUserID's data of
// the given kind. First match wins: primary-user bypass, self-access, then
// the unique permission row. An expired row is denied without being mutated.
// Storage failures resolve to deny.
func (g *Guard) HasPermission(requesting domain.User, targetUserID string, kind domain.PermissionKind) bool {
	if requesting.IsPrimaryUser {
		return true
	}
	if requesting.ID == targetUserID {
		return true
	}
	perm, ok, err := g.store.GetPermission(requesting.ID, targetUserID, kind)
	if err != nil {
		slog.Error("permission lookup failed, denying", "user", requesting.ID, "target", targetUserID, "kind", kind, "err", err)
		return false
	}
	if !ok || !perm.IsActive {
		slog.Warn("permission denied", "user", requesting.ID, "target", targetUserID, "kind", kind)
		return false
	}
	if perm.ExpiresAt != nil && !perm.ExpiresAt.After(g.now()) {
		slog.Warn("permission expired", "user", requesting.ID, "target", targetUserID, "kind", kind)
		return false
	}
	return true
}

// Grant gives subjectUserID access to grantorID's data of the given kind.
// Granting again replaces the expiration on the existing row.
func (g *Guard) Grant(grantorID, subjectUserID string, kind domain.PermissionKind, expiresAt *time.Time) error {
	now := g.now()
	return g.store.UpsertPermission(domain.Permission{
		ID:        util.NewID(),
		UserID:    subjectUserID,
		GrantorID: grantorID,
		Kind:      kind,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Revoke deactivates the grant without deleting the row, preserving audit
// history. Revoking an absent or already-revoked grant is a no-op upsert.
func (g *Guard) Revoke(grantorID, subjectUserID string, kind domain.PermissionKind) error {
	now := g.now()
	perm, ok, err := g.store.GetPermission(subjectUserID, grantorID, kind)
	if err != nil {
		return err
	}
	if !ok {
		perm = domain.Permission{
			ID:        util.NewID(),
			UserID:    subjectUserID,
			GrantorID: grantorID,
			Kind:      kind,
			CreatedAt: now,
		}
	}
	perm.IsActive = false
	perm.UpdatedAt = now
	return g.store.UpsertPermission(perm)
}
