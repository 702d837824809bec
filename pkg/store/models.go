package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GORM models used for persistence. Coordinates are DECIMAL(11,8) so they
// survive storage round-trips without floating-point drift.
type UserModel struct {
	ID            string `gorm:"primaryKey"`
	PhoneNumber   string `gorm:"uniqueIndex;not null"`
	Name          string `gorm:"not null"`
	IsPrimaryUser bool   `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time
}

type ContactModel struct {
	ID          string    `gorm:"primaryKey"`
	OwnerID     string    `gorm:"not null;index"`
	Name        string    `gorm:"not null"`
	PhoneNumber string    `gorm:"not null"`
	Email       string
	Notes       string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type PermissionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;uniqueIndex:idx_permission_subject_grantor_kind"`
	GrantorID string `gorm:"not null;uniqueIndex:idx_permission_subject_grantor_kind"`
	Kind      string `gorm:"not null;uniqueIndex:idx_permission_subject_grantor_kind"`
	IsActive  bool   `gorm:"not null"`
	ExpiresAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type ListModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	Type      string `gorm:"not null;index"`
	IsShared  bool   `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

type ListItemModel struct {
	ID          string `gorm:"primaryKey"`
	ListID      string `gorm:"not null;index"`
	Content     string `gorm:"not null"`
	Quantity    string
	IsCompleted bool `gorm:"not null"`
	AddedByID   string
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index"`
}

type ListShareModel struct {
	ID               string `gorm:"primaryKey"`
	ListID           string `gorm:"not null;uniqueIndex:idx_list_share_list_user"`
	SharedWithUserID string `gorm:"not null;uniqueIndex:idx_list_share_list_user"`
	CanEdit          bool   `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

type LocationModel struct {
	ID        string          `gorm:"primaryKey"`
	UserID    string          `gorm:"not null;index"`
	Latitude  decimal.Decimal `gorm:"type:decimal(11,8);not null"`
	Longitude decimal.Decimal `gorm:"type:decimal(11,8);not null"`
	Address   string
	IsCurrent bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type TripModel struct {
	ID                 string `gorm:"primaryKey"`
	UserID             string `gorm:"not null;index"`
	OriginLat          *decimal.Decimal `gorm:"type:decimal(11,8)"`
	OriginLng          *decimal.Decimal `gorm:"type:decimal(11,8)"`
	OriginAddress      string
	DestinationLat     decimal.Decimal `gorm:"type:decimal(11,8);not null"`
	DestinationLng     decimal.Decimal `gorm:"type:decimal(11,8);not null"`
	DestinationAddress string          `gorm:"not null"`
	EstimatedArrival   *time.Time
	Status             string `gorm:"not null;index"`
	CompletedAt        *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time
}

type MessageLogModel struct {
	ID                string `gorm:"primaryKey"`
	FromPhone         string `gorm:"not null;index"`
	ToPhone           string `gorm:"not null"`
	Body              string `gorm:"type:text;not null"`
	Direction         string `gorm:"not null"`
	ProviderMessageID string
	Status            string
	Intent            string
	Confidence        float64
	Entities          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"not null;index"`
}
