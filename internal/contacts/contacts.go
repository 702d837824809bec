// Package contacts manages per-user contact books.
package contacts

import (
	"fmt"
	"strings"
	"time"

	"homeline/internal/util"
	"homeline/pkg/domain"
)

// ContactStore is the slice of the store the contact service needs.
type ContactStore interface {
	SaveContact(domain.Contact) error
	SearchContacts(ownerID, query string) ([]domain.Contact, error)
}

// Service owns contact operations.
type Service struct {
	store ContactStore
	now   func() time.Time
}

// New constructs the contact service.
func New(store ContactStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Add records a new contact owned by ownerID.
func (s *Service) Add(ownerID, name, phone string) (domain.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Contact{}, fmt.Errorf("contact name required")
	}
	now := s.now()
	contact := domain.Contact{
		ID:          util.NewID(),
		OwnerID:     ownerID,
		Name:        name,
		PhoneNumber: strings.TrimSpace(phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveContact(contact); err != nil {
		return domain.Contact{}, fmt.Errorf("save contact: %w", err)
	}
	return contact, nil
}

// Find returns ownerID's contacts whose name contains the query,
// case-insensitively. An empty query returns all of them.
func (s *Service) Find(ownerID, query string) ([]domain.Contact, error) {
	res, err := s.store.SearchContacts(ownerID, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return res, nil
}
