package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// CounterAggregator rebuilds derived counters from the ledger. It never
// increments in place, so repeating a recompute is harmless and heals any
// drift left by a missed update.
type CounterAggregator struct {
	ledger   VoteLedger
	targets  TargetStore
	comments CommentStore
	logger   *zap.Logger
}

func NewCounterAggregator(d Deps) *CounterAggregator {
	d = d.withDefaults()
	return &CounterAggregator{
		ledger:   d.Store,
		targets:  d.Store,
		comments: d.Store,
		logger:   d.Logger.Named("counter"),
	}
}

// Recompute counts every ledger row of the target by direction and
// overwrites the stored upvote/downvote counters.
func (a *CounterAggregator) Recompute(ctx context.Context, targetID uint, targetType models.TargetType) (models.Counts, error) {
	counts, err := a.ledger.CountVotes(ctx, targetID, targetType)
	if err != nil {
		return models.Counts{}, fmt.Errorf("%w: count %s %d: %v", ErrAggregationFailure, targetType, targetID, err)
	}
	if err := a.targets.SaveCounts(ctx, targetID, targetType, counts); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Counts{}, fmt.Errorf("%w: %s %d", ErrInvalidTarget, targetType, targetID)
		}
		return models.Counts{}, fmt.Errorf("%w: save %s %d: %v", ErrAggregationFailure, targetType, targetID, err)
	}
	return counts, nil
}

// RecomputeCommentCount recounts the comments of a post or poll.
func (a *CounterAggregator) RecomputeCommentCount(ctx context.Context, root models.ContentRef) (int, error) {
	n, err := a.comments.CountComments(ctx, root)
	if err != nil {
		return 0, fmt.Errorf("%w: count comments of %s %d: %v", ErrAggregationFailure, root.Type, root.ID, err)
	}
	if err := a.comments.SaveCommentCount(ctx, root, n); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s %d", ErrInvalidTarget, root.Type, root.ID)
		}
		return 0, fmt.Errorf("%w: save comment count of %s %d: %v", ErrAggregationFailure, root.Type, root.ID, err)
	}
	return n, nil
}

// RecountStats summarises a RecountAll run.
type RecountStats struct {
	Targets  int
	Comments int
	Failures int
}

// RecountAll rebuilds vote counters of every target and the comment count
// of every post and poll. Individual failures are logged and counted; the
// run only aborts when a target listing fails or ctx is done.
func (a *CounterAggregator) RecountAll(ctx context.Context) (RecountStats, error) {
	var stats RecountStats
	for _, tt := range []models.TargetType{models.TargetPost, models.TargetPoll, models.TargetComment} {
		ids, err := a.targets.ListTargetIDs(ctx, tt)
		if err != nil {
			return stats, fmt.Errorf("list %s ids: %w", tt, err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if _, err := a.Recompute(ctx, id, tt); err != nil {
				stats.Failures++
				a.logger.Warn("recount failed", zap.String("target_type", string(tt)), zap.Uint("target_id", id), zap.Error(err))
				continue
			}
			stats.Targets++

			if tt == models.TargetComment {
				continue
			}
			root := models.ContentRef{Type: models.ContentType(tt), ID: id}
			if _, err := a.RecomputeCommentCount(ctx, root); err != nil {
				stats.Failures++
				a.logger.Warn("comment recount failed", zap.String("target_type", string(tt)), zap.Uint("target_id", id), zap.Error(err))
				continue
			}
			stats.Comments++
		}
	}
	a.logger.Info("recount finished",
		zap.Int("targets", stats.Targets),
		zap.Int("comment_counts", stats.Comments),
		zap.Int("failures", stats.Failures))
	return stats, nil
}
