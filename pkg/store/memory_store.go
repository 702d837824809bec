package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"homeline/pkg/domain"
)

// MemoryStore keeps all state in-process. It mirrors GormStore semantics
// closely enough to back the service packages in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	phones     map[string]string // phone -> user ID
	userOrder  []string
	contacts   map[string]domain.Contact
	perms      map[string]domain.Permission // key: user|grantor|kind
	lists      map[string]domain.List
	listOrder  []string
	items      map[string][]domain.ListItem // key: list ID
	shares     map[string]domain.ListShare  // key: list|user
	locations  map[string][]domain.Location // key: user ID
	trips      map[string]domain.Trip
	tripOrder  []string
	logs       []domain.MessageLog
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		phones:    make(map[string]string),
		contacts:  make(map[string]domain.Contact),
		perms:     make(map[string]domain.Permission),
		lists:     make(map[string]domain.List),
		items:     make(map[string][]domain.ListItem),
		shares:    make(map[string]domain.ListShare),
		locations: make(map[string][]domain.Location),
		trips:     make(map[string]domain.Trip),
	}
}

func permKey(userID, grantorID string, kind domain.PermissionKind) string {
	return userID + "|" + grantorID + "|" + string(kind)
}

func shareKey(listID, userID string) string {
	return listID + "|" + userID
}

func containsFold(content, query string) bool {
	return strings.Contains(strings.ToLower(content), strings.ToLower(query))
}

// SaveUser registers or updates a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	m.phones[u.PhoneNumber] = u.ID
	return nil
}

// GetUserByPhone looks up a user by phone number.
func (m *MemoryStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.phones[phone]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns users in insertion order.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		if u, ok := m.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// SaveContact stores or updates a contact.
func (m *MemoryStore) SaveContact(c domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

// SearchContacts matches contacts by case-insensitive name substring.
func (m *MemoryStore) SearchContacts(ownerID, query string) ([]domain.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Contact, 0)
	for _, c := range m.contacts {
		if c.OwnerID != ownerID {
			continue
		}
		if query != "" && !containsFold(c.Name, query) {
			continue
		}
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// UpsertPermission inserts or replaces the unique (user, grantor, kind) row.
func (m *MemoryStore) UpsertPermission(p domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := permKey(p.UserID, p.GrantorID, p.Kind)
	if existing, ok := m.perms[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	m.perms[key] = p
	return nil
}

// GetPermission returns the unique (user, grantor, kind) row if present.
func (m *MemoryStore) GetPermission(userID, grantorID string, kind domain.PermissionKind) (domain.Permission, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.perms[permKey(userID, grantorID, kind)]
	return p, ok, nil
}

// SaveList stores or updates a list and tracks creation order.
func (m *MemoryStore) SaveList(l domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.lists[l.ID]; !exists {
		m.listOrder = append(m.listOrder, l.ID)
	}
	m.lists[l.ID] = l
	return nil
}

// GetList retrieves a list by ID.
func (m *MemoryStore) GetList(id string) (domain.List, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lists[id]
	return l, ok, nil
}

// ListsByOwner returns lists owned by the user in creation order.
func (m *MemoryStore) ListsByOwner(ownerID string) ([]domain.List, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.List, 0)
	for _, id := range m.listOrder {
		if l, ok := m.lists[id]; ok && l.OwnerID == ownerID {
			res = append(res, l)
		}
	}
	return res, nil
}

// ListsSharedWith returns lists shared with the user in creation order.
func (m *MemoryStore) ListsSharedWith(userID string) ([]domain.List, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.List, 0)
	for _, id := range m.listOrder {
		l, ok := m.lists[id]
		if !ok {
			continue
		}
		if _, shared := m.shares[shareKey(id, userID)]; shared {
			res = append(res, l)
		}
	}
	return res, nil
}

// UpsertListShare writes the share row and flags the list as shared.
func (m *MemoryStore) UpsertListShare(share domain.ListShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := shareKey(share.ListID, share.SharedWithUserID)
	if existing, ok := m.shares[key]; ok {
		share.ID = existing.ID
		share.CreatedAt = existing.CreatedAt
	}
	m.shares[key] = share
	if l, ok := m.lists[share.ListID]; ok {
		l.IsShared = true
		l.UpdatedAt = time.Now().UTC()
		m.lists[share.ListID] = l
	}
	return nil
}

// GetListShare returns the share row for (list, user) if present.
func (m *MemoryStore) GetListShare(listID, userID string) (domain.ListShare, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shares[shareKey(listID, userID)]
	return s, ok, nil
}

// AddListItem records a new item.
func (m *MemoryStore) AddListItem(item domain.ListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ListID] = append(m.items[item.ListID], item)
	return nil
}

// ListItems returns items of a list in creation order.
func (m *MemoryStore) ListItems(listID string) ([]domain.ListItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.items[listID]
	res := make([]domain.ListItem, len(items))
	copy(res, items)
	return res, nil
}

// RemoveListItemsMatching deletes every matching item and reports the count.
func (m *MemoryStore) RemoveListItemsMatching(listID, query string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[listID]
	kept := items[:0]
	var removed int64
	for _, item := range items {
		if containsFold(item.Content, query) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	m.items[listID] = kept
	return removed, nil
}

// CompleteListItemsMatching marks every matching incomplete item completed.
func (m *MemoryStore) CompleteListItemsMatching(listID, query string, completedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[listID]
	var changed int64
	for i, item := range items {
		if item.IsCompleted || !containsFold(item.Content, query) {
			continue
		}
		done := completedAt.UTC()
		items[i].IsCompleted = true
		items[i].CompletedAt = &done
		changed++
	}
	m.items[listID] = items
	return changed, nil
}

// SetCurrentLocation flips prior current rows off and appends the new row.
func (m *MemoryStore) SetCurrentLocation(loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.locations[loc.UserID]
	for i := range rows {
		rows[i].IsCurrent = false
	}
	loc.IsCurrent = true
	m.locations[loc.UserID] = append(rows, loc)
	return nil
}

// GetCurrentLocation returns the user's current location if one exists.
func (m *MemoryStore) GetCurrentLocation(userID string) (domain.Location, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations[userID] {
		if loc.IsCurrent {
			return loc, true, nil
		}
	}
	return domain.Location{}, false, nil
}

// CurrentLocationCount reports how many rows carry the current flag for a
// user. Exposed so tests can assert the singleton invariant.
func (m *MemoryStore) CurrentLocationCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, loc := range m.locations[userID] {
		if loc.IsCurrent {
			count++
		}
	}
	return count
}

// CreateTrip inserts an active trip, cancelling any prior active trip for
// the same user.
func (m *MemoryStore) CreateTrip(t domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range m.trips {
		if existing.UserID == t.UserID && existing.Status == domain.TripActive {
			existing.Status = domain.TripCancelled
			existing.CompletedAt = &now
			existing.UpdatedAt = now
			m.trips[id] = existing
		}
	}
	m.trips[t.ID] = t
	m.tripOrder = append(m.tripOrder, t.ID)
	return nil
}

// GetActiveTrip returns the user's active trip if one exists.
func (m *MemoryStore) GetActiveTrip(userID string) (domain.Trip, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.tripOrder) - 1; i >= 0; i-- {
		t, ok := m.trips[m.tripOrder[i]]
		if ok && t.UserID == userID && t.Status == domain.TripActive {
			return t, true, nil
		}
	}
	return domain.Trip{}, false, nil
}

// GetTrip returns any trip by ID. Test helper.
func (m *MemoryStore) GetTrip(id string) (domain.Trip, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	return t, ok
}

// SetTripStatus transitions a trip and stamps completed_at.
func (m *MemoryStore) SetTripStatus(id string, status domain.TripStatus, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil
	}
	done := completedAt.UTC()
	t.Status = status
	t.CompletedAt = &done
	t.UpdatedAt = time.Now().UTC()
	m.trips[id] = t
	return nil
}

// AppendMessageLog records an audit row.
func (m *MemoryStore) AppendMessageLog(entry domain.MessageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// SetMessageLogIntent back-fills the classified intent on a row.
func (m *MemoryStore) SetMessageLogIntent(id, intent string, confidence float64, entities map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID == id {
			m.logs[i].Intent = intent
			m.logs[i].Confidence = confidence
			m.logs[i].Entities = entities
		}
	}
	return nil
}

// SetMessageLogDelivery back-fills provider id and delivery status on a row.
func (m *MemoryStore) SetMessageLogDelivery(id, providerMessageID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.logs {
		if m.logs[i].ID == id {
			m.logs[i].ProviderMessageID = providerMessageID
			m.logs[i].Status = status
		}
	}
	return nil
}

// MessageLogs returns a copy of all audit rows in append order. Test helper.
func (m *MemoryStore) MessageLogs() []domain.MessageLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.MessageLog, len(m.logs))
	copy(res, m.logs)
	return res
}
