package store

import (
	"time"

	"homeline/pkg/domain"
)

// Store defines persistence operations for users, contacts, permissions,
// lists, locations, trips, and the message audit log.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByPhone(phone string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)

	// contacts
	SaveContact(domain.Contact) error
	// SearchContacts matches by case-insensitive substring of the contact
	// name. An empty query returns all contacts owned by ownerID.
	SearchContacts(ownerID, query string) ([]domain.Contact, error)

	// permissions
	// UpsertPermission inserts or replaces the unique
	// (user, grantor, kind) row.
	UpsertPermission(domain.Permission) error
	GetPermission(userID, grantorID string, kind domain.PermissionKind) (domain.Permission, bool, error)

	// lists
	SaveList(domain.List) error
	GetList(id string) (domain.List, bool, error)
	ListsByOwner(ownerID string) ([]domain.List, error)
	ListsSharedWith(userID string) ([]domain.List, error)
	// UpsertListShare writes the unique (list, user) share row and flags
	// the list as shared in the same transaction.
	UpsertListShare(domain.ListShare) error
	GetListShare(listID, userID string) (domain.ListShare, bool, error)

	// list items
	AddListItem(domain.ListItem) error
	ListItems(listID string) ([]domain.ListItem, error)
	// RemoveListItemsMatching deletes every item in the list whose content
	// matches the query by case-insensitive substring and reports how many
	// rows were removed.
	RemoveListItemsMatching(listID, query string) (int64, error)
	// CompleteListItemsMatching marks every matching incomplete item
	// completed and reports how many rows changed.
	CompleteListItemsMatching(listID, query string, completedAt time.Time) (int64, error)

	// locations
	// SetCurrentLocation atomically clears the current flag on the user's
	// prior locations and inserts loc with IsCurrent = true. At most one
	// current row per user survives the call.
	SetCurrentLocation(loc domain.Location) error
	GetCurrentLocation(userID string) (domain.Location, bool, error)

	// trips
	// CreateTrip inserts an active trip, cancelling any prior active trip
	// for the same user in the same transaction so at most one trip per
	// user is ever active.
	CreateTrip(domain.Trip) error
	GetActiveTrip(userID string) (domain.Trip, bool, error)
	SetTripStatus(id string, status domain.TripStatus, completedAt time.Time) error

	// message log
	AppendMessageLog(domain.MessageLog) error
	SetMessageLogIntent(id, intent string, confidence float64, entities map[string]string) error
	SetMessageLogDelivery(id, providerMessageID, status string) error
}
