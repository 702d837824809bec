package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"homeline/pkg/domain"
)

const migrateLockID int64 = 48120348

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent instances cannot race the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&ContactModel{},
			&PermissionModel{},
			&ListModel{},
			&ListItemModel{},
			&ListShareModel{},
			&LocationModel{},
			&TripModel{},
			&MessageLogModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func likePattern(query string) string {
	return "%" + query + "%"
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone_number", "name", "is_primary_user", "updated_at"}),
	}).Create(&model).Error
}

// GetUserByPhone looks up a user by phone number.
func (s *GormStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("phone_number = ?", phone).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SaveContact stores or updates a contact.
func (s *GormStore) SaveContact(c domain.Contact) error {
	model := contactToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone_number", "email", "notes", "updated_at"}),
	}).Create(&model).Error
}

// SearchContacts matches contacts by case-insensitive name substring.
func (s *GormStore) SearchContacts(ownerID, query string) ([]domain.Contact, error) {
	tx := s.db.Where("owner_id = ?", ownerID).Order("name ASC")
	if query != "" {
		tx = tx.Where("name ILIKE ?", likePattern(query))
	}
	var models []ContactModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Contact, 0, len(models))
	for _, m := range models {
		res = append(res, contactFromModel(m))
	}
	return res, nil
}

// UpsertPermission inserts or replaces the unique (user, grantor, kind) row.
func (s *GormStore) UpsertPermission(p domain.Permission) error {
	model := permissionToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "grantor_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "expires_at", "updated_at"}),
	}).Create(&model).Error
}

// GetPermission returns the unique (user, grantor, kind) row if present.
func (s *GormStore) GetPermission(userID, grantorID string, kind domain.PermissionKind) (domain.Permission, bool, error) {
	var model PermissionModel
	err := s.db.Where("user_id = ? AND grantor_id = ? AND kind = ?", userID, grantorID, string(kind)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Permission{}, false, nil
		}
		return domain.Permission{}, false, err
	}
	return permissionFromModel(model), true, nil
}

// SaveList stores or updates a list.
func (s *GormStore) SaveList(l domain.List) error {
	model := listToModel(l)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "is_shared", "updated_at"}),
	}).Create(&model).Error
}

// GetList retrieves a list.
func (s *GormStore) GetList(id string) (domain.List, bool, error) {
	var model ListModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.List{}, false, nil
		}
		return domain.List{}, false, err
	}
	return listFromModel(model), true, nil
}

// ListsByOwner returns lists owned by the user in creation order.
func (s *GormStore) ListsByOwner(ownerID string) ([]domain.List, error) {
	var models []ListModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.List, 0, len(models))
	for _, m := range models {
		res = append(res, listFromModel(m))
	}
	return res, nil
}

// ListsSharedWith returns lists shared with the user in creation order.
func (s *GormStore) ListsSharedWith(userID string) ([]domain.List, error) {
	var models []ListModel
	err := s.db.
		Joins("JOIN list_share_models ON list_share_models.list_id = list_models.id").
		Where("list_share_models.shared_with_user_id = ?", userID).
		Order("list_models.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.List, 0, len(models))
	for _, m := range models {
		res = append(res, listFromModel(m))
	}
	return res, nil
}

// UpsertListShare writes the unique (list, user) share row and flags the
// list as shared in the same transaction.
func (s *GormStore) UpsertListShare(share domain.ListShare) error {
	model := listShareToModel(share)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "list_id"}, {Name: "shared_with_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_edit"}),
		}).Create(&model).Error; err != nil {
			return err
		}
		return tx.Model(&ListModel{}).
			Where("id = ?", share.ListID).
			Updates(map[string]any{"is_shared": true, "updated_at": time.Now().UTC()}).Error
	})
}

// GetListShare returns the share row for (list, user) if present.
func (s *GormStore) GetListShare(listID, userID string) (domain.ListShare, bool, error) {
	var model ListShareModel
	err := s.db.Where("list_id = ? AND shared_with_user_id = ?", listID, userID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ListShare{}, false, nil
		}
		return domain.ListShare{}, false, err
	}
	return listShareFromModel(model), true, nil
}

// AddListItem records a new item.
func (s *GormStore) AddListItem(item domain.ListItem) error {
	model := listItemToModel(item)
	return s.db.Create(&model).Error
}

// ListItems returns items of a list in creation order.
func (s *GormStore) ListItems(listID string) ([]domain.ListItem, error) {
	var models []ListItemModel
	if err := s.db.Where("list_id = ?", listID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ListItem, 0, len(models))
	for _, m := range models {
		res = append(res, listItemFromModel(m))
	}
	return res, nil
}

// RemoveListItemsMatching deletes every matching item and reports the count.
func (s *GormStore) RemoveListItemsMatching(listID, query string) (int64, error) {
	res := s.db.Where("list_id = ? AND content ILIKE ?", listID, likePattern(query)).
		Delete(&ListItemModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CompleteListItemsMatching marks every matching incomplete item completed.
func (s *GormStore) CompleteListItemsMatching(listID, query string, completedAt time.Time) (int64, error) {
	res := s.db.Model(&ListItemModel{}).
		Where("list_id = ? AND is_completed = false AND content ILIKE ?", listID, likePattern(query)).
		Updates(map[string]any{"is_completed": true, "completed_at": completedAt.UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// SetCurrentLocation flips the prior current rows off and inserts the new
// row inside one transaction, preserving the per-user singleton invariant.
func (s *GormStore) SetCurrentLocation(loc domain.Location) error {
	model := locationToModel(loc)
	model.IsCurrent = true
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&LocationModel{}).
			Where("user_id = ? AND is_current = true", loc.UserID).
			Update("is_current", false).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
}

// GetCurrentLocation returns the user's current location if one exists.
func (s *GormStore) GetCurrentLocation(userID string) (domain.Location, bool, error) {
	var model LocationModel
	err := s.db.Where("user_id = ? AND is_current = true", userID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Location{}, false, nil
		}
		return domain.Location{}, false, err
	}
	return locationFromModel(model), true, nil
}

// CreateTrip inserts an active trip, cancelling any prior active trip for
// the same user in the same transaction.
func (s *GormStore) CreateTrip(t domain.Trip) error {
	model := tripToModel(t)
	now := time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&TripModel{}).
			Where("user_id = ? AND status = ?", t.UserID, string(domain.TripActive)).
			Updates(map[string]any{
				"status":       string(domain.TripCancelled),
				"completed_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
}

// GetActiveTrip returns the user's active trip if one exists.
func (s *GormStore) GetActiveTrip(userID string) (domain.Trip, bool, error) {
	var model TripModel
	err := s.db.Where("user_id = ? AND status = ?", userID, string(domain.TripActive)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Trip{}, false, nil
		}
		return domain.Trip{}, false, err
	}
	return tripFromModel(model), true, nil
}

// SetTripStatus transitions a trip and stamps completed_at.
func (s *GormStore) SetTripStatus(id string, status domain.TripStatus, completedAt time.Time) error {
	return s.db.Model(&TripModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       string(status),
			"completed_at": completedAt.UTC(),
			"updated_at":   time.Now().UTC(),
		}).Error
}

// AppendMessageLog records an audit row.
func (s *GormStore) AppendMessageLog(m domain.MessageLog) error {
	model := messageLogToModel(m)
	return s.db.Create(&model).Error
}

// SetMessageLogIntent back-fills the classified intent on an inbound row.
func (s *GormStore) SetMessageLogIntent(id, intent string, confidence float64, entities map[string]string) error {
	raw, _ := json.Marshal(entities)
	return s.db.Model(&MessageLogModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"intent":     intent,
			"confidence": confidence,
			"entities":   raw,
		}).Error
}

// SetMessageLogDelivery back-fills provider message id and delivery status.
func (s *GormStore) SetMessageLogDelivery(id, providerMessageID, status string) error {
	return s.db.Model(&MessageLogModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"provider_message_id": providerMessageID,
			"status":              status,
		}).Error
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:            u.ID,
		PhoneNumber:   u.PhoneNumber,
		Name:          u.Name,
		IsPrimaryUser: u.IsPrimaryUser,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:            m.ID,
		PhoneNumber:   m.PhoneNumber,
		Name:          m.Name,
		IsPrimaryUser: m.IsPrimaryUser,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func contactToModel(c domain.Contact) ContactModel {
	return ContactModel{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func permissionToModel(p domain.Permission) PermissionModel {
	return PermissionModel{
		ID:        p.ID,
		UserID:    p.UserID,
		GrantorID: p.GrantorID,
		Kind:      string(p.Kind),
		IsActive:  p.IsActive,
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func permissionFromModel(m PermissionModel) domain.Permission {
	return domain.Permission{
		ID:        m.ID,
		UserID:    m.UserID,
		GrantorID: m.GrantorID,
		Kind:      domain.PermissionKind(m.Kind),
		IsActive:  m.IsActive,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func listToModel(l domain.List) ListModel {
	return ListModel{
		ID:        l.ID,
		OwnerID:   l.OwnerID,
		Name:      l.Name,
		Type:      l.Type,
		IsShared:  l.IsShared,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func listFromModel(m ListModel) domain.List {
	return domain.List{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Type:      m.Type,
		IsShared:  m.IsShared,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func listItemToModel(i domain.ListItem) ListItemModel {
	return ListItemModel{
		ID:          i.ID,
		ListID:      i.ListID,
		Content:     i.Content,
		Quantity:    i.Quantity,
		IsCompleted: i.IsCompleted,
		AddedByID:   i.AddedByID,
		CompletedAt: i.CompletedAt,
		CreatedAt:   i.CreatedAt,
	}
}

func listItemFromModel(m ListItemModel) domain.ListItem {
	return domain.ListItem{
		ID:          m.ID,
		ListID:      m.ListID,
		Content:     m.Content,
		Quantity:    m.Quantity,
		IsCompleted: m.IsCompleted,
		AddedByID:   m.AddedByID,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func listShareToModel(s domain.ListShare) ListShareModel {
	return ListShareModel{
		ID:               s.ID,
		ListID:           s.ListID,
		SharedWithUserID: s.SharedWithUserID,
		CanEdit:          s.CanEdit,
		CreatedAt:        s.CreatedAt,
	}
}

func listShareFromModel(m ListShareModel) domain.ListShare {
	return domain.ListShare{
		ID:               m.ID,
		ListID:           m.ListID,
		SharedWithUserID: m.SharedWithUserID,
		CanEdit:          m.CanEdit,
		CreatedAt:        m.CreatedAt,
	}
}

func locationToModel(l domain.Location) LocationModel {
	return LocationModel{
		ID:        l.ID,
		UserID:    l.UserID,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Address:   l.Address,
		IsCurrent: l.IsCurrent,
		CreatedAt: l.CreatedAt,
	}
}

func locationFromModel(m LocationModel) domain.Location {
	return domain.Location{
		ID:        m.ID,
		UserID:    m.UserID,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Address:   m.Address,
		IsCurrent: m.IsCurrent,
		CreatedAt: m.CreatedAt,
	}
}

func tripToModel(t domain.Trip) TripModel {
	return TripModel{
		ID:                 t.ID,
		UserID:             t.UserID,
		OriginLat:          t.OriginLat,
		OriginLng:          t.OriginLng,
		OriginAddress:      t.OriginAddress,
		DestinationLat:     t.DestinationLat,
		DestinationLng:     t.DestinationLng,
		DestinationAddress: t.DestinationAddress,
		EstimatedArrival:   t.EstimatedArrival,
		Status:             string(t.Status),
		CompletedAt:        t.CompletedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func tripFromModel(m TripModel) domain.Trip {
	return domain.Trip{
		ID:                 m.ID,
		UserID:             m.UserID,
		OriginLat:          m.OriginLat,
		OriginLng:          m.OriginLng,
		OriginAddress:      m.OriginAddress,
		DestinationLat:     m.DestinationLat,
		DestinationLng:     m.DestinationLng,
		DestinationAddress: m.DestinationAddress,
		EstimatedArrival:   m.EstimatedArrival,
		Status:             domain.TripStatus(m.Status),
		CompletedAt:        m.CompletedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func messageLogToModel(m domain.MessageLog) MessageLogModel {
	var entities []byte
	if len(m.Entities) > 0 {
		entities, _ = json.Marshal(m.Entities)
	}
	return MessageLogModel{
		ID:                m.ID,
		FromPhone:         m.FromPhone,
		ToPhone:           m.ToPhone,
		Body:              m.Body,
		Direction:         string(m.Direction),
		ProviderMessageID: m.ProviderMessageID,
		Status:            m.Status,
		Intent:            m.Intent,
		Confidence:        m.Confidence,
		Entities:          entities,
		CreatedAt:         m.CreatedAt,
	}
}
