package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus tracks a trip through its lifecycle. Completed and cancelled
// are terminal.
type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// PermissionKind names a category of cross-user data access.
type PermissionKind string

const (
	PermLocation PermissionKind = "location"
	PermETA      PermissionKind = "eta"
	PermContacts PermissionKind = "contacts"
	PermLists    PermissionKind = "lists"
)

// Direction distinguishes inbound and outbound messages in the audit log.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type User struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phoneNumber"`
	Name          string    `json:"name"`
	IsPrimaryUser bool      `json:"isPrimaryUser"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Contact struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       string    `json:"email,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission is the unique (subject, grantor, kind) grant row. Revoking
// clears IsActive but keeps the row for audit history.
type Permission struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	GrantorID string         `json:"grantorId"`
	Kind      PermissionKind `json:"kind"`
	IsActive  bool           `json:"isActive"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type List struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsShared  bool      `json:"isShared"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListItem struct {
	ID          string     `json:"id"`
	ListID      string     `json:"listId"`
	Content     string     `json:"content"`
	Quantity    string     `json:"quantity,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	AddedByID   string     `json:"addedById,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ListShare grants a non-owner access to a list. Unique per (list, user).
type ListShare struct {
	ID               string    `json:"id"`
	ListID           string    `json:"listId"`
	SharedWithUserID string    `json:"sharedWithUserId"`
	CanEdit          bool      `json:"canEdit"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Location is an append-only point-in-time record. At most one row per user
// carries IsCurrent = true.
type Location struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Latitude  decimal.Decimal `json:"latitude"`
	Longitude decimal.Decimal `json:"longitude"`
	Address   string          `json:"address,omitempty"`
	IsCurrent bool            `json:"isCurrent"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Trip struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	OriginLat          *decimal.Decimal `json:"originLat,omitempty"`
	OriginLng          *decimal.Decimal `json:"originLng,omitempty"`
	OriginAddress      string           `json:"originAddress,omitempty"`
	DestinationLat     decimal.Decimal  `json:"destinationLat"`
	DestinationLng     decimal.Decimal  `json:"destinationLng"`
	DestinationAddress string           `json:"destinationAddress"`
	EstimatedArrival   *time.Time       `json:"estimatedArrival,omitempty"`
	Status             TripStatus       `json:"status"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// MessageLog is the append-only audit record for every message in either
// direction. Intent and delivery status are back-filled after creation.
type MessageLog struct {
	ID                string            `json:"id"`
	FromPhone         string            `json:"fromPhone"`
	ToPhone           string            `json:"toPhone"`
	Body              string            `json:"body"`
	Direction         Direction         `json:"direction"`
	ProviderMessageID string            `json:"providerMessageId,omitempty"`
	Status            string            `json:"status,omitempty"`
	Intent            string            `json:"intent,omitempty"`
	Confidence        float64           `json:"confidence,omitempty"`
	Entities          map[string]string `json:"entities,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Place is a geocoded point.
type Place struct {
	Latitude         decimal.Decimal `json:"latitude"`
	Longitude        decimal.Decimal `json:"longitude"`
	FormattedAddress string          `json:"formattedAddress"`
}

// Route is a traffic-aware route estimate between two points.
type Route struct {
	DistanceMeters           int64  `json:"distanceMeters"`
	DurationSeconds          int64  `json:"durationSeconds"`
	DurationInTrafficSeconds int64  `json:"durationInTrafficSeconds"`
	Polyline                 string `json:"polyline,omitempty"`
}
