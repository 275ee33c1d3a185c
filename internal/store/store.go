package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"repair-tracker-backend/internal/model"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/timeline"
)

// Store defines the interface for all database operations.
type Store interface {
	repair.DeviceStore
	repair.ActorDirectory
	timeline.Sources
	timeline.Directory

	CreateDevice(ctx context.Context, d repair.Device) error
	UpsertUser(ctx context.Context, u model.User) error
	ListOpenDevices(ctx context.Context) ([]repair.Device, error)
	MarkOverdueNotified(ctx context.Context, deviceID string, returnDate, at time.Time) (bool, error)

	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context, customerID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", repair.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

// GetDevice returns the device with its transitions in history order.
func (s *gormStore) GetDevice(ctx context.Context, id string) (repair.Device, error) {
	var row model.Device
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return repair.Device{}, notFound(err, "device", id)
	}

	var rows []model.Transition
	if err := s.db.WithContext(ctx).
		Where("device_id = ?", id).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return repair.Device{}, fmt.Errorf("failed to load transitions of device %s: %w", id, err)
	}

	d := deviceFromModel(row)
	d.Transitions = make([]repair.Transition, 0, len(rows))
	for _, r := range rows {
		d.Transitions = append(d.Transitions, transitionFromModel(r))
	}
	return d, nil
}

// AppendTransition sets the device status and stores the transition in one
// database transaction. The device row is only updated while its last_seq is
// still t.Seq-1, so two writers that read the same history cannot both commit.
func (s *gormStore) AppendTransition(ctx context.Context, t repair.Transition) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Device{}).
			Where("id = ? AND last_seq = ?", t.DeviceID, t.Seq-1).
			Updates(map[string]any{"status": string(t.ToStatus), "updated_at": t.Timestamp, "last_seq": t.Seq})
		if res.Error != nil {
			return fmt.Errorf("failed to update status of device %s: %w", t.DeviceID, res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Device{}).Where("id = ?", t.DeviceID).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to check device %s: %w", t.DeviceID, err)
			}
			if n == 0 {
				return fmt.Errorf("%w: device %s", repair.ErrNotFound, t.DeviceID)
			}
			return fmt.Errorf("%w: device %s changed since transition %d was read", repair.ErrConflict, t.DeviceID, t.Seq-1)
		}

		row := transitionToModel(t)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert transition for device %s: %w", t.DeviceID, err)
		}
		return nil
	})
}

// CreateDevice inserts a device and its initial transitions.
func (s *gormStore) CreateDevice(ctx context.Context, d repair.Device) error {
	row := deviceToModel(d)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create device %s: %w", d.ID, err)
		}
		for i, t := range d.Transitions {
			tr := transitionToModel(t)
			tr.DeviceID = d.ID
			tr.Seq = i + 1
			if err := tx.Create(&tr).Error; err != nil {
				return fmt.Errorf("failed to insert transition for device %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// ListOpenDevices returns devices with a return date that are not done or failed.
func (s *gormStore) ListOpenDevices(ctx context.Context) ([]repair.Device, error) {
	var rows []model.Device
	if err := s.db.WithContext(ctx).
		Where("expected_return_date IS NOT NULL").
		Where("status NOT IN ?", []string{string(repair.StatusDone), string(repair.StatusFailed)}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list open devices: %w", err)
	}
	out := make([]repair.Device, 0, len(rows))
	for _, r := range rows {
		out = append(out, deviceFromModel(r))
	}
	return out, nil
}

// MarkOverdueNotified records that the overdue notice for (deviceID, returnDate)
// went out. It reports false when it had already been recorded.
func (s *gormStore) MarkOverdueNotified(ctx context.Context, deviceID string, returnDate, at time.Time) (bool, error) {
	notice := model.OverdueNotice{DeviceID: deviceID, ReturnDate: returnDate.UTC(), NotifiedAt: at}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&notice)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record overdue notice for device %s: %w", deviceID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetActor returns the user with the given id.
func (s *gormStore) GetActor(ctx context.Context, id string) (repair.Actor, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return repair.Actor{}, notFound(err, "user", id)
	}
	return repair.Actor{ID: u.ID, Name: displayName(u), Role: repair.Role(u.Role)}, nil
}

// UpsertUser creates or updates a user.
func (s *gormStore) UpsertUser(ctx context.Context, u model.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role"}),
	}).Create(&u).Error
}

// LookupNames batch-fetches display names.
func (s *gormStore) LookupNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to look up %d user names: %w", len(ids), err)
	}
	for _, u := range users {
		if n := displayName(u); n != "" {
			names[u.ID] = n
		}
	}
	return names, nil
}

func displayName(u model.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func (s *gormStore) ListTransitions(ctx context.Context, deviceID string) ([]timeline.TransitionRecord, error) {
	var rows []model.Transition
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, transitionRecord), nil
}

func (s *gormStore) ListPayments(ctx context.Context, deviceID string) ([]timeline.PaymentRecord, error) {
	var rows []model.Payment
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("payment_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, paymentRecord), nil
}

func (s *gormStore) ListAttachments(ctx context.Context, deviceID string) ([]timeline.AttachmentRecord, error) {
	var rows []model.Attachment
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("uploaded_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, attachmentRecord), nil
}

func (s *gormStore) ListRatings(ctx context.Context, deviceID string) ([]timeline.RatingRecord, error) {
	var rows []model.Rating
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, ratingRecord), nil
}

func (s *gormStore) ListAuditLogs(ctx context.Context, entityType, entityID string) ([]timeline.AuditLogRecord, error) {
	var rows []model.AuditLog
	if err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, auditLogRecord), nil
}

func (s *gormStore) ListPointsTransactions(ctx context.Context, deviceID string) ([]timeline.PointsRecord, error) {
	var rows []model.PointsTransaction
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, pointsRecord), nil
}

func (s *gormStore) ListSmsLogs(ctx context.Context, deviceID string) ([]timeline.SmsRecord, error) {
	var rows []model.SmsLog
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, smsRecord), nil
}

// SaveSubscription creates or refreshes a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "customer_id"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns every subscription of a customer.
func (s *gormStore) ListSubscriptions(ctx context.Context, customerID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of customer %s: %w", customerID, err)
	}
	return subs, nil
}
