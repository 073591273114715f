package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/telemetry"
	"agora/internal/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultVoteMaxRetries = 3

// VoteResult is the state after a toggle. Counts is nil when the counter
// recompute failed; the vote itself still stands.
type VoteResult struct {
	UserVote models.Direction `json:"userVote"`
	Counts   *models.Counts   `json:"updatedCounts,omitempty"`
}

// VoteService applies toggle votes. Calls for the same (user, target, type)
// run one at a time inside this process; the storage unique index covers
// the rest, and a lost race is retried from the lookup.
type VoteService struct {
	ledger     VoteLedger
	targets    TargetStore
	karma      KarmaStore
	counter    *CounterAggregator
	cache      *utils.QueryCache
	notifier   Notifier
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	locks      *utils.KeyedMutex
	maxRetries int
	now        func() time.Time
}

func NewVoteService(d Deps, counter *CounterAggregator, maxRetries int) *VoteService {
	d = d.withDefaults()
	if counter == nil {
		counter = NewCounterAggregator(d)
	}
	if maxRetries <= 0 {
		maxRetries = DefaultVoteMaxRetries
	}
	return &VoteService{
		ledger:     d.Store,
		targets:    d.Store,
		karma:      d.Store,
		counter:    counter,
		cache:      d.Cache,
		notifier:   d.Notifier,
		metrics:    d.Metrics,
		logger:     d.Logger.Named("votes"),
		locks:      utils.NewKeyedMutex(),
		maxRetries: maxRetries,
		now:        d.Now,
	}
}

func voteLockKey(userID, targetID uint, targetType models.TargetType) string {
	return fmt.Sprintf("%d:%s:%d", userID, targetType, targetID)
}

// ApplyVote toggles the user's vote on a target.
// No vote yet: record direction. Same direction: undo. Other direction: switch.
func (s *VoteService) ApplyVote(ctx context.Context, userID, targetID uint, targetType models.TargetType, direction models.Direction) (*VoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "VoteService.ApplyVote", trace.WithAttributes(
		attribute.String("target_type", string(targetType)),
		attribute.Int64("target_id", int64(targetID)),
		attribute.String("direction", string(direction)),
	))
	defer span.End()

	result, err := s.applyVote(ctx, userID, targetID, targetType, direction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *VoteService) applyVote(ctx context.Context, userID, targetID uint, targetType models.TargetType, direction models.Direction) (*VoteResult, error) {
	if !targetType.Valid() {
		return nil, fmt.Errorf("%w: target type %q", ErrInvalidVote, targetType)
	}
	if direction != models.DirectionUp && direction != models.DirectionDown {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidVote, direction)
	}

	authorID, err := s.targets.TargetAuthor(ctx, targetID, targetType)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrInvalidTarget, targetType, targetID)
		}
		return nil, fmt.Errorf("resolve target: %w", err)
	}

	unlock := s.locks.Lock(voteLockKey(userID, targetID, targetType))
	defer unlock()

	var oldState, newState models.Direction
	for attempt := 1; ; attempt++ {
		oldState, newState, err = s.toggle(ctx, userID, targetID, targetType, direction)
		if err == nil {
			break
		}
		if !errors.Is(err, db.ErrConflict) {
			return nil, fmt.Errorf("apply vote: %w", err)
		}
		s.metrics.WriteConflict(ctx)
		s.logger.Debug("vote write conflict, retrying",
			zap.Uint("user_id", userID), zap.Uint("target_id", targetID),
			zap.String("target_type", string(targetType)), zap.Int("attempt", attempt))
		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("%w after %d attempts", ErrWriteConflict, attempt)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	result := &VoteResult{UserVote: newState}

	// 账本已写入，计数失败不回滚
	counts, err := s.counter.Recompute(ctx, targetID, targetType)
	if err != nil {
		s.metrics.AggregationFailure(ctx)
		s.logger.Error("counter recompute failed",
			zap.Uint("target_id", targetID), zap.String("target_type", string(targetType)), zap.Error(err))
	} else {
		result.Counts = &counts
	}
	s.cache.InvalidateAll()

	s.applyKarma(ctx, userID, authorID, targetType, oldState, newState)
	s.notify(ctx, userID, authorID, targetID, targetType, newState)

	s.metrics.VoteApplied(ctx, string(targetType), string(newState))
	return result, nil
}

// toggle performs one lookup-and-write pass and returns the previous and
// resulting states.
func (s *VoteService) toggle(ctx context.Context, userID, targetID uint, targetType models.TargetType, direction models.Direction) (models.Direction, models.Direction, error) {
	existing, err := s.ledger.FindVote(ctx, userID, targetID, targetType)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return "", "", err
	}

	next := &models.Vote{
		UserID:     userID,
		TargetID:   targetID,
		TargetType: targetType,
		Direction:  direction,
		CreatedAt:  s.now().UTC(),
	}

	switch {
	case existing == nil:
		if err := s.ledger.CreateVote(ctx, next); err != nil {
			return "", "", err
		}
		return models.DirectionNone, direction, nil
	case existing.Direction == direction:
		if err := s.ledger.DeleteVote(ctx, existing); err != nil {
			return "", "", err
		}
		return direction, models.DirectionNone, nil
	default:
		if err := s.ledger.ReplaceVote(ctx, existing, next); err != nil {
			return "", "", err
		}
		return existing.Direction, direction, nil
	}
}

func (s *VoteService) applyKarma(ctx context.Context, voterID, authorID uint, targetType models.TargetType, oldState, newState models.Direction) {
	if !earnsKarma(targetType, voterID, authorID) {
		return
	}
	delta := KarmaDelta(oldState, newState)
	if delta == 0 {
		return
	}
	if err := s.karma.AddKarma(ctx, authorID, delta); err != nil {
		s.logger.Warn("karma update failed", zap.Uint("author_id", authorID), zap.Int("delta", delta), zap.Error(err))
	}
}

func (s *VoteService) notify(ctx context.Context, voterID, authorID, targetID uint, targetType models.TargetType, state models.Direction) {
	if !earnsKarma(targetType, voterID, authorID) {
		return
	}
	var typ models.NotificationType
	switch state {
	case models.DirectionUp:
		typ = models.NotificationTypeUpvote
	case models.DirectionDown:
		typ = models.NotificationTypeDownvote
	default:
		return
	}
	event := newEvent(typ, authorID, voterID, targetID, targetType, s.now())
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("vote notification failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}
