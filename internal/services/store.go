package services

import (
	"agora/internal/models"
	"context"
	"time"
)

// VoteLedger is the per-key vote row accessor. Writes that lose a race on
// the (user, target, type) uniqueness return db.ErrConflict.
type VoteLedger interface {
	FindVote(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error)
	CreateVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, vote *models.Vote) error
	ReplaceVote(ctx context.Context, old, next *models.Vote) error
	CountVotes(ctx context.Context, targetID uint, targetType models.TargetType) (models.Counts, error)
	UserVotes(ctx context.Context, userID uint, targetType models.TargetType, targetIDs []uint) (map[uint]models.Direction, error)
}

// TargetStore resolves vote targets and holds their derived counters.
type TargetStore interface {
	TargetAuthor(ctx context.Context, targetID uint, targetType models.TargetType) (uint, error)
	SaveCounts(ctx context.Context, targetID uint, targetType models.TargetType, counts models.Counts) error
	ListTargetIDs(ctx context.Context, targetType models.TargetType) ([]uint, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	ListComments(ctx context.Context, root models.ContentRef) ([]models.Comment, error)
	CountComments(ctx context.Context, root models.ContentRef) (int, error)
	SaveCommentCount(ctx context.Context, root models.ContentRef, count int) error
}

type ContentStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	CreatePoll(ctx context.Context, poll *models.Poll) error
	GetContent(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error)
	DeleteContent(ctx context.Context, ref models.ContentRef) error
	ListContent(ctx context.Context, f models.ContentFilter, now time.Time) ([]models.ContentItem, error)
}

type KarmaStore interface {
	AddKarma(ctx context.Context, userID uint, delta int) error
}

// UserStore reads accounts for request identity and profiles.
type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

// NotificationInbox is the recipient-side view of notifications.
type NotificationInbox interface {
	ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error)
}

// Store is everything the engine needs from persistence. Both
// db.Repository and db.MemoryStore satisfy it.
type Store interface {
	VoteLedger
	TargetStore
	CommentStore
	ContentStore
	KarmaStore
	UserStore
	NotificationStore
	NotificationInbox
	Ping(ctx context.Context) error
}
