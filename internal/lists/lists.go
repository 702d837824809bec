// Package lists resolves list references, enforces share-based access, and
// applies bulk item operations.
package lists

import (
	"fmt"
	"strings"
	"time"

	"homeline/internal/util"
	"homeline/pkg/domain"
)

const (
	defaultListName = "Grocery"
	defaultListType = "grocery"
)

// ListStore is the slice of the store the list service needs.
type ListStore interface {
	SaveList(domain.List) error
	ListsByOwner(ownerID string) ([]domain.List, error)
	ListsSharedWith(userID string) ([]domain.List, error)
	UpsertListShare(domain.ListShare) error
	GetListShare(listID, userID string) (domain.ListShare, bool, error)
	AddListItem(domain.ListItem) error
	ListItems(listID string) ([]domain.ListItem, error)
	RemoveListItemsMatching(listID, query string) (int64, error)
	CompleteListItemsMatching(listID, query string, completedAt time.Time) (int64, error)
}

// Service owns list resolution and item operations.
type Service struct {
	store ListStore
	now   func() time.Time
}

// New constructs the list service.
func New(store ListStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// ResolveList finds the list a name or type reference points to. With no
// reference it resolves to the user's canonical grocery list, creating it
// lazily. Otherwise it searches lists owned by the user, then lists shared
// with them, matching by case-insensitive substring of the name or exact
// case-insensitive type. When several qualify, the first by creation order
// wins.
func (s *Service) ResolveList(userID, nameOrType string) (domain.List, bool, error) {
	nameOrType = strings.TrimSpace(nameOrType)
	if nameOrType == "" {
		return s.ensureDefaultList(userID)
	}
	owned, err := s.store.ListsByOwner(userID)
	if err != nil {
		return domain.List{}, false, fmt.Errorf("list owned lists: %w", err)
	}
	for _, l := range owned {
		if matchesList(l, nameOrType) {
			return l, true, nil
		}
	}
	shared, err := s.store.ListsSharedWith(userID)
	if err != nil {
		return domain.List{}, false, fmt.Errorf("list shared lists: %w", err)
	}
	for _, l := range shared {
		if matchesList(l, nameOrType) {
			return l, true, nil
		}
	}
	return domain.List{}, false, nil
}

func matchesList(l domain.List, query string) bool {
	if strings.Contains(strings.ToLower(l.Name), strings.ToLower(query)) {
		return true
	}
	return strings.EqualFold(l.Type, query)
}

func (s *Service) ensureDefaultList(userID string) (domain.List, bool, error) {
	owned, err := s.store.ListsByOwner(userID)
	if err != nil {
		return domain.List{}, false, fmt.Errorf("list owned lists: %w", err)
	}
	for _, l := range owned {
		if strings.EqualFold(l.Type, defaultListType) {
			return l, true, nil
		}
	}
	now := s.now()
	list := domain.List{
		ID:        util.NewID(),
		OwnerID:   userID,
		Name:      defaultListName,
		Type:      defaultListType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveList(list); err != nil {
		return domain.List{}, false, fmt.Errorf("create default list: %w", err)
	}
	return list, true, nil
}

// HasAccess reports whether userID may use the list. The owner always has
// access; a non-owner needs a share row, and editing additionally requires
// the share's canEdit bit.
func (s *Service) HasAccess(list domain.List, userID string, requireEdit bool) (bool, error) {
	if list.OwnerID == userID {
		return true, nil
	}
	share, ok, err := s.store.GetListShare(list.ID, userID)
	if err != nil {
		return false, fmt.Errorf("lookup list share: %w", err)
	}
	if !ok {
		return false, nil
	}
	if requireEdit && !share.CanEdit {
		return false, nil
	}
	return true, nil
}

// AddItem appends a new item to the list.
func (s *Service) AddItem(list domain.List, userID, content, quantity string) (domain.ListItem, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ListItem{}, fmt.Errorf("item content required")
	}
	item := domain.ListItem{
		ID:        util.NewID(),
		ListID:    list.ID,
		Content:   content,
		Quantity:  strings.TrimSpace(quantity),
		AddedByID: userID,
		CreatedAt: s.now(),
	}
	if err := s.store.AddListItem(item); err != nil {
		return domain.ListItem{}, fmt.Errorf("add list item: %w", err)
	}
	return item, nil
}

// RemoveItems deletes every item matching the query by case-insensitive
// substring and reports the count. Zero means nothing matched.
func (s *Service) RemoveItems(list domain.List, query string) (int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, fmt.Errorf("item query required")
	}
	count, err := s.store.RemoveListItemsMatching(list.ID, query)
	if err != nil {
		return 0, fmt.Errorf("remove list items: %w", err)
	}
	return count, nil
}

// CompleteItems marks every matching incomplete item completed and reports
// the count.
func (s *Service) CompleteItems(list domain.List, query string) (int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, fmt.Errorf("item query required")
	}
	count, err := s.store.CompleteListItemsMatching(list.ID, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("complete list items: %w", err)
	}
	return count, nil
}

// Items returns the list's items in creation order.
func (s *Service) Items(list domain.List) ([]domain.ListItem, error) {
	items, err := s.store.ListItems(list.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Share grants another user access to the list. Sharing again updates the
// canEdit bit on the existing share.
func (s *Service) Share(list domain.List, withUserID string, canEdit bool) error {
	if list.OwnerID == withUserID {
		return nil
	}
	return s.store.UpsertListShare(domain.ListShare{
		ID:               util.NewID(),
		ListID:           list.ID,
		SharedWithUserID: withUserID,
		CanEdit:          canEdit,
		CreatedAt:        s.now(),
	})
}
