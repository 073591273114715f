package services

import (
	"agora/internal/models"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers engine notification events. Delivery failures are
// logged by the caller and never fail the originating operation.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.NotificationEvent) error { return nil }

// StoreNotifier persists events as notification rows.
type StoreNotifier struct {
	store NotificationStore
}

func NewStoreNotifier(store NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: store}
}

func (n *StoreNotifier) Notify(ctx context.Context, event models.NotificationEvent) error {
	row := event.Notification()
	return n.store.SaveNotification(ctx, &row)
}

// MultiNotifier fans an event out to every sink and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event models.NotificationEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newEvent stamps an event with a fresh id.
func newEvent(typ models.NotificationType, recipient, actor, targetID uint, targetType models.TargetType, now time.Time) models.NotificationEvent {
	return models.NotificationEvent{
		ID:          uuid.NewString(),
		Type:        typ,
		RecipientID: recipient,
		ActorID:     actor,
		TargetID:    targetID,
		TargetType:  targetType,
		CreatedAt:   now.UTC(),
	}
}
