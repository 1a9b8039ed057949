package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"winery-tank-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	AddShipment(ctx context.Context, shipment *model.Shipment) error
	ListShipments(ctx context.Context, clientID string) ([]model.Shipment, error)
	ClearShipments(ctx context.Context, clientID string) (int64, error)

	PutSubscription(ctx context.Context, sub model.PushSubscription, depositIDs []int64) error
	GetSubscribedTanks(ctx context.Context, endpoint string) ([]int64, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForTank(ctx context.Context, depositID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AddShipment records an in-progress shipment, assigning an id when missing.
func (s *gormStore) AddShipment(ctx context.Context, shipment *model.Shipment) error {
	if shipment.ID == "" {
		shipment.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return fmt.Errorf("failed to create shipment for client %q: %w", shipment.ClientID, err)
	}
	return nil
}

// ListShipments returns a client's in-progress shipments, oldest first.
func (s *gormStore) ListShipments(ctx context.Context, clientID string) ([]model.Shipment, error) {
	var shipments []model.Shipment
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at").
		Find(&shipments).Error; err != nil {
		return nil, fmt.Errorf("failed to list shipments for client %q: %w", clientID, err)
	}
	return shipments, nil
}

// ClearShipments drops every in-progress shipment of a client and reports how many were removed.
func (s *gormStore) ClearShipments(ctx context.Context, clientID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("client_id = ?", clientID).Delete(&model.Shipment{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear shipments for client %q: %w", clientID, res.Error)
	}
	return res.RowsAffected, nil
}

// PutSubscription creates or replaces a subscription and the set of tanks it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, depositIDs []int64) error {
	sub.Tanks = nil
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscribedTank{}).Error; err != nil {
			return fmt.Errorf("failed to reset subscribed tanks: %w", err)
		}

		tanks := subscribedTanks(sub.Endpoint, depositIDs)
		if len(tanks) == 0 {
			return nil
		}
		if err := tx.Create(&tanks).Error; err != nil {
			return fmt.Errorf("failed to save subscribed tanks: %w", err)
		}
		return nil
	})
}

// GetSubscribedTanks returns the deposit ids followed by a subscription.
func (s *gormStore) GetSubscribedTanks(ctx context.Context, endpoint string) ([]int64, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Tanks").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	ids := make([]int64, len(sub.Tanks))
	for i, t := range sub.Tanks {
		ids[i] = t.DepositID
	}
	return ids, nil
}

// DeleteSubscription removes a subscription and its tank links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscribedTank{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscribed tanks: %w", err)
		}
		if err := tx.Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// SubscriptionsForTank returns every subscription following a deposit.
func (s *gormStore) SubscriptionsForTank(ctx context.Context, depositID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscribed_tanks st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.deposit_id = ?", depositID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for deposit %d: %w", depositID, err)
	}
	return subscriptions, nil
}

// subscribedTanks builds the link rows, dropping duplicate ids.
func subscribedTanks(endpoint string, depositIDs []int64) []model.SubscribedTank {
	seen := make(map[int64]bool, len(depositIDs))
	tanks := make([]model.SubscribedTank, 0, len(depositIDs))
	for _, id := range depositIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		tanks = append(tanks, model.SubscribedTank{Endpoint: endpoint, DepositID: id})
	}
	return tanks
}
