package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeUpvote       NotificationType = "upvote"
	NotificationTypeDownvote     NotificationType = "downvote"
	NotificationTypeCommentPost  NotificationType = "comment_post"
	NotificationTypeReplyComment NotificationType = "reply_comment"
)

type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	EventID    string           `gorm:"size:36;uniqueIndex" json:"event_id"`
	UserID     uint             `gorm:"not null;index" json:"user_id"` // Receiver
	ActorID    uint             `gorm:"not null;index" json:"actor_id"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	TargetID   uint             `gorm:"not null" json:"target_id"`
	TargetType TargetType       `gorm:"type:varchar(10);not null" json:"target_type"`
	IsRead     bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NotificationEvent is what the engine emits; storage and pub/sub sinks
// decide how to deliver it.
type NotificationEvent struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	RecipientID uint             `json:"recipient_id"`
	ActorID     uint             `json:"actor_id"`
	TargetID    uint             `json:"target_id"`
	TargetType  TargetType       `json:"target_type"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (e NotificationEvent) Notification() Notification {
	return Notification{
		EventID:    e.ID,
		UserID:     e.RecipientID,
		ActorID:    e.ActorID,
		Type:       e.Type,
		TargetID:   e.TargetID,
		TargetType: e.TargetType,
		CreatedAt:  e.CreatedAt,
	}
}
