package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxCommentLength bounds a single comment body in runes.
const MaxCommentLength = 10000

// CommentInput is a new comment. Exactly one of PostID and PollID is set.
type CommentInput struct {
	Content  string
	PostID   *uint
	PollID   *uint
	ParentID *uint
}

func (in CommentInput) root() (models.ContentRef, error) {
	switch {
	case in.PostID != nil && in.PollID != nil:
		return models.ContentRef{}, fmt.Errorf("%w: comment needs exactly one of post or poll", ErrInvalidTarget)
	case in.PostID != nil:
		return models.ContentRef{Type: models.ContentPost, ID: *in.PostID}, nil
	case in.PollID != nil:
		return models.ContentRef{Type: models.ContentPoll, ID: *in.PollID}, nil
	}
	return models.ContentRef{}, fmt.Errorf("%w: comment needs a post or poll", ErrInvalidTarget)
}

type CommentService struct {
	comments CommentStore
	content  ContentStore
	counter  *CounterAggregator
	cache    *utils.QueryCache
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewCommentService(d Deps, counter *CounterAggregator) *CommentService {
	d = d.withDefaults()
	if counter == nil {
		counter = NewCounterAggregator(d)
	}
	return &CommentService{
		comments: d.Store,
		content:  d.Store,
		counter:  counter,
		cache:    d.Cache,
		notifier: d.Notifier,
		logger:   d.Logger.Named("comments"),
		now:      d.Now,
	}
}

// CreateComment stores a comment and recounts the root's comment count.
func (s *CommentService) CreateComment(ctx context.Context, userID uint, in CommentInput) (*models.Comment, error) {
	body := strings.TrimSpace(in.Content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrInvalidContent)
	}
	if len([]rune(body)) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", ErrInvalidContent, MaxCommentLength)
	}

	root, err := in.root()
	if err != nil {
		return nil, err
	}
	item, err := s.content.GetContent(ctx, root)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrInvalidTarget, root.Type, root.ID)
		}
		return nil, fmt.Errorf("load %s: %w", root.Type, err)
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.comments.GetComment(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: comment %d does not exist", ErrInvalidParent, *in.ParentID)
			}
			return nil, fmt.Errorf("load parent: %w", err)
		}
		if pr, ok := parent.Root(); !ok || pr != root {
			return nil, fmt.Errorf("%w: comment %d belongs to another thread", ErrInvalidParent, parent.ID)
		}
	}

	comment := &models.Comment{
		UserID:    userID,
		PostID:    in.PostID,
		PollID:    in.PollID,
		ParentID:  in.ParentID,
		Content:   body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if _, err := s.counter.RecomputeCommentCount(ctx, root); err != nil {
		s.logger.Error("comment count recompute failed",
			zap.String("root_type", string(root.Type)), zap.Uint("root_id", root.ID), zap.Error(err))
	}
	s.cache.InvalidateAll()

	// 回复通知父评论作者，否则通知内容作者
	recipient, typ, targetID, targetType := item.AuthorID, models.NotificationTypeCommentPost, root.ID, root.Type.TargetType()
	if parent != nil {
		recipient, typ, targetID, targetType = parent.UserID, models.NotificationTypeReplyComment, parent.ID, models.TargetComment
	}
	if recipient != userID {
		event := newEvent(typ, recipient, userID, targetID, targetType, s.now())
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn("comment notification failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	return comment, nil
}

// ListComments returns the comment forest of a post or poll.
func (s *CommentService) ListComments(ctx context.Context, root models.ContentRef, opts utils.TreeOptions) ([]*utils.CommentNode, error) {
	if _, err := s.content.GetContent(ctx, root); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrInvalidTarget, root.Type, root.ID)
		}
		return nil, fmt.Errorf("load %s: %w", root.Type, err)
	}
	flat, err := s.comments.ListComments(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return utils.BuildCommentTree(flat, opts), nil
}
