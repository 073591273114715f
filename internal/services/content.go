package services

import (
	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/telemetry"
	"agora/internal/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
	MaxTitleLength   = 300
	MaxPollOptions   = 10
)

// PostInput is a new post. Poll creation reuses it plus Options.
type PostInput struct {
	Title          string
	Content        string
	OrganizationID *uint
	BowlID         *uint
}

// ContentService serves ranked listings through the query cache and owns
// the content mutations that invalidate it.
type ContentService struct {
	content ContentStore
	ledger  VoteLedger
	cache   *utils.QueryCache
	rank    utils.RankConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewContentService(d Deps) *ContentService {
	d = d.withDefaults()
	s := &ContentService{
		content: d.Store,
		ledger:  d.Store,
		cache:   d.Cache,
		rank:    utils.DefaultRankConfig,
		logger:  d.Logger.Named("content"),
		now:     d.Now,
	}
	if d.Rank != nil {
		s.rank = *d.Rank
	}
	return s
}

// normalizeFilter applies listing defaults so equal requests share a key.
func normalizeFilter(f models.ContentFilter) models.ContentFilter {
	f.Sort = models.ParseSort(string(f.Sort))
	f.TimeWindow = models.ParseTimeWindow(string(f.TimeWindow))
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultFeedLimit
	case f.Limit > MaxFeedLimit:
		f.Limit = MaxFeedLimit
	}
	return f
}

// ListContent returns the ranked listing for f. A fresh cache entry is
// served as-is; on a miss expired entries are pruned, candidates fetched
// and ranked, and the result stored.
func (s *ContentService) ListContent(ctx context.Context, f models.ContentFilter) ([]models.ContentItem, error) {
	f = normalizeFilter(f)
	if f.Type != "" && f.Type != models.ContentPost && f.Type != models.ContentPoll {
		return nil, fmt.Errorf("%w: content type %q", ErrInvalidContent, f.Type)
	}
	key := f.CacheKey()

	ctx, span := telemetry.StartSpan(ctx, "ContentService.ListContent", trace.WithAttributes(
		attribute.String("cache_key", key),
	))
	defer span.End()

	if items, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return items, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))
	s.cache.PruneExpired()

	now := s.now()
	candidates, err := s.content.ListContent(ctx, f, now)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list content: %w", err)
	}

	ranked := s.rank.Rank(candidates, f.Sort, now)
	if len(ranked) > f.Limit {
		ranked = ranked[:f.Limit]
	}
	if f.UserID != 0 {
		if err := s.hydrateUserVotes(ctx, f.UserID, ranked); err != nil {
			// 投票状态只是展示信息，但不能缓存错误的状态
			s.logger.Warn("user vote lookup failed", zap.Uint("user_id", f.UserID), zap.Error(err))
			return ranked, nil
		}
	}

	s.cache.Put(key, ranked)
	return ranked, nil
}

func (s *ContentService) hydrateUserVotes(ctx context.Context, userID uint, items []models.ContentItem) error {
	ids := map[models.ContentType][]uint{}
	for _, it := range items {
		ids[it.Type] = append(ids[it.Type], it.ID)
	}
	votes := map[models.ContentType]map[uint]models.Direction{}
	for typ, list := range ids {
		m, err := s.ledger.UserVotes(ctx, userID, typ.TargetType(), list)
		if err != nil {
			return err
		}
		votes[typ] = m
	}
	for i := range items {
		if d, ok := votes[items[i].Type][items[i].ID]; ok {
			items[i].UserVote = d
		} else {
			items[i].UserVote = models.DirectionNone
		}
	}
	return nil
}

func validatePost(in PostInput) (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidContent)
	}
	if len([]rune(in.Title)) > MaxTitleLength {
		return in, fmt.Errorf("%w: title longer than %d characters", ErrInvalidContent, MaxTitleLength)
	}
	return in, nil
}

func (s *ContentService) CreatePost(ctx context.Context, userID uint, in PostInput) (*models.Post, error) {
	in, err := validatePost(in)
	if err != nil {
		return nil, err
	}
	post := &models.Post{
		UserID:         userID,
		OrganizationID: in.OrganizationID,
		BowlID:         in.BowlID,
		Title:          in.Title,
		Content:        in.Content,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.content.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.cache.InvalidateAll()
	return post, nil
}

func (s *ContentService) CreatePoll(ctx context.Context, userID uint, in PostInput, options []string) (*models.Poll, error) {
	in, err := validatePost(in)
	if err != nil {
		return nil, err
	}
	var opts []models.PollOption
	for _, label := range options {
		if label = strings.TrimSpace(label); label != "" {
			opts = append(opts, models.PollOption{Label: label})
		}
	}
	if len(opts) < 2 || len(opts) > MaxPollOptions {
		return nil, fmt.Errorf("%w: a poll needs 2 to %d options", ErrInvalidContent, MaxPollOptions)
	}
	poll := &models.Poll{
		UserID:         userID,
		OrganizationID: in.OrganizationID,
		BowlID:         in.BowlID,
		Title:          in.Title,
		Content:        in.Content,
		Options:        opts,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.content.CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.cache.InvalidateAll()
	return poll, nil
}

// DeleteContent removes a post or poll with its comments and votes. Only
// the author may delete.
func (s *ContentService) DeleteContent(ctx context.Context, userID uint, ref models.ContentRef) error {
	item, err := s.content.GetContent(ctx, ref)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s %d", ErrInvalidTarget, ref.Type, ref.ID)
		}
		return fmt.Errorf("load %s: %w", ref.Type, err)
	}
	if item.AuthorID != userID {
		return ErrForbidden
	}
	if err := s.content.DeleteContent(ctx, ref); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s %d", ErrInvalidTarget, ref.Type, ref.ID)
		}
		return fmt.Errorf("delete %s: %w", ref.Type, err)
	}
	s.cache.InvalidateAll()
	s.logger.Info("content deleted", zap.String("type", string(ref.Type)), zap.Uint("id", ref.ID), zap.Uint("user_id", userID))
	return nil
}
