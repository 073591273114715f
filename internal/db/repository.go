package db

import (
	"agora/internal/models"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCandidateLimit caps the candidate set for orderings the store can
// apply itself.
const DefaultCandidateLimit = 500

// candidateLimit reports how many rows ListContent may return for algo.
// new and top are ordered by the store exactly as RankItems would, so the
// first DefaultCandidateLimit rows cover every page. The decayed scores
// (hot, rising, trending) can favour any row, so they get the whole window.
func candidateLimit(algo models.SortAlgorithm) int {
	switch algo {
	case models.SortNew, models.SortTop:
		return DefaultCandidateLimit
	}
	return 0
}

// Repository is the gorm-backed store.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func tableFor(t models.TargetType) (string, error) {
	switch t {
	case models.TargetPost:
		return "posts", nil
	case models.TargetPoll:
		return "polls", nil
	case models.TargetComment:
		return "comments", nil
	}
	return "", fmt.Errorf("unknown target type %q", t)
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ---- vote ledger ----

func (r *Repository) FindVote(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, targetID, targetType).
		First(&vote).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

func (r *Repository) CreateVote(ctx context.Context, vote *models.Vote) error {
	return translate(r.db.WithContext(ctx).Create(vote).Error)
}

func deleteVote(tx *gorm.DB, vote *models.Vote) error {
	res := tx.Where("id = ? AND direction = ?", vote.ID, vote.Direction).Delete(&models.Vote{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *Repository) DeleteVote(ctx context.Context, vote *models.Vote) error {
	return deleteVote(r.db.WithContext(ctx), vote)
}

// ReplaceVote deletes old and inserts next in one transaction.
func (r *Repository) ReplaceVote(ctx context.Context, old, next *models.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteVote(tx, old); err != nil {
			return err
		}
		return translate(tx.Create(next).Error)
	})
}

func (r *Repository) CountVotes(ctx context.Context, targetID uint, targetType models.TargetType) (models.Counts, error) {
	type row struct {
		Direction models.Direction
		Count     int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("direction, COUNT(*) AS count").
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Group("direction").
		Scan(&rows).Error
	if err != nil {
		return models.Counts{}, err
	}

	var counts models.Counts
	for _, rw := range rows {
		switch rw.Direction {
		case models.DirectionUp:
			counts.Upvotes = rw.Count
		case models.DirectionDown:
			counts.Downvotes = rw.Count
		}
	}
	return counts, nil
}

func (r *Repository) UserVotes(ctx context.Context, userID uint, targetType models.TargetType, targetIDs []uint) (map[uint]models.Direction, error) {
	out := make(map[uint]models.Direction, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, targetIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		out[v.TargetID] = v.Direction
	}
	return out, nil
}

// ---- targets ----

func (r *Repository) TargetAuthor(ctx context.Context, targetID uint, targetType models.TargetType) (uint, error) {
	table, err := tableFor(targetType)
	if err != nil {
		return 0, ErrNotFound
	}
	var authors []uint
	if err := r.db.WithContext(ctx).Table(table).Where("id = ?", targetID).Limit(1).Pluck("user_id", &authors).Error; err != nil {
		return 0, err
	}
	if len(authors) == 0 {
		return 0, ErrNotFound
	}
	return authors[0], nil
}

func (r *Repository) SaveCounts(ctx context.Context, targetID uint, targetType models.TargetType, counts models.Counts) error {
	table, err := tableFor(targetType)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Table(table).Where("id = ?", targetID).
		UpdateColumns(map[string]interface{}{
			"upvotes":   counts.Upvotes,
			"downvotes": counts.Downvotes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListTargetIDs(ctx context.Context, targetType models.TargetType) ([]uint, error) {
	table, err := tableFor(targetType)
	if err != nil {
		return nil, err
	}
	var ids []uint
	err = r.db.WithContext(ctx).Table(table).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// ---- comments ----

func rootColumn(root models.ContentRef) (string, error) {
	switch root.Type {
	case models.ContentPost:
		return "post_id", nil
	case models.ContentPoll:
		return "poll_id", nil
	}
	return "", fmt.Errorf("unknown content type %q", root.Type)
}

func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error)
}

func (r *Repository) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *Repository) ListComments(ctx context.Context, root models.ContentRef) ([]models.Comment, error) {
	col, err := rootColumn(root)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	err = r.db.WithContext(ctx).Preload("User").
		Where(col+" = ?", root.ID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *Repository) CountComments(ctx context.Context, root models.ContentRef) (int, error) {
	col, err := rootColumn(root)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.WithContext(ctx).Model(&models.Comment{}).Where(col+" = ?", root.ID).Count(&count).Error
	return int(count), err
}

func (r *Repository) SaveCommentCount(ctx context.Context, root models.ContentRef, count int) error {
	table, err := tableFor(root.Type.TargetType())
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Table(table).Where("id = ?", root.ID).UpdateColumn("comment_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- content ----

func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(post).Error)
}

func (r *Repository) CreatePoll(ctx context.Context, poll *models.Poll) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(poll).Error)
}

func (r *Repository) GetContent(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error) {
	switch ref.Type {
	case models.ContentPost:
		var post models.Post
		if err := r.db.WithContext(ctx).Preload("User").First(&post, ref.ID).Error; err != nil {
			return nil, translate(err)
		}
		item := post.ContentItem()
		item.Author = &post.User
		return &item, nil
	case models.ContentPoll:
		var poll models.Poll
		if err := r.db.WithContext(ctx).Preload("User").First(&poll, ref.ID).Error; err != nil {
			return nil, translate(err)
		}
		item := poll.ContentItem()
		item.Author = &poll.User
		return &item, nil
	}
	return nil, ErrNotFound
}

// DeleteContent removes a post or poll with its comments and every vote
// that pointed at either.
func (r *Repository) DeleteContent(ctx context.Context, ref models.ContentRef) error {
	col, err := rootColumn(ref)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where(col+" = ?", ref.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_type = ? AND target_id = ?", ref.Type.TargetType(), ref.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}

		var res *gorm.DB
		if ref.Type == models.ContentPost {
			res = tx.Delete(&models.Post{}, ref.ID)
		} else {
			res = tx.Where("poll_id = ?", ref.ID).Delete(&models.PollOption{})
			if res.Error != nil {
				return res.Error
			}
			res = tx.Delete(&models.Poll{}, ref.ID)
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func applyContentFilter(q *gorm.DB, f models.ContentFilter, now time.Time) *gorm.DB {
	if f.OrganizationID != nil {
		q = q.Where("organization_id = ?", *f.OrganizationID)
	}
	if f.BowlID != nil {
		q = q.Where("bowl_id = ?", *f.BowlID)
	}
	if since := f.TimeWindow.Since(now); !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if f.Sort == models.SortTop {
		q = q.Order("upvotes - downvotes DESC")
	}
	q = q.Preload("User").Order("created_at DESC").Order("id DESC")
	if n := candidateLimit(f.Sort); n > 0 {
		q = q.Limit(n)
	}
	return q
}

// ListContent returns the unranked candidate set matching f: by net score
// for top, otherwise newest first. f.Limit applies after ranking and is
// ignored here.
func (r *Repository) ListContent(ctx context.Context, f models.ContentFilter, now time.Time) ([]models.ContentItem, error) {
	var items []models.ContentItem

	if f.Type == "" || f.Type == models.ContentPost {
		var posts []models.Post
		if err := applyContentFilter(r.db.WithContext(ctx), f, now).Find(&posts).Error; err != nil {
			return nil, err
		}
		for i := range posts {
			item := posts[i].ContentItem()
			item.Author = &posts[i].User
			items = append(items, item)
		}
	}
	if f.Type == "" || f.Type == models.ContentPoll {
		var polls []models.Poll
		if err := applyContentFilter(r.db.WithContext(ctx), f, now).Find(&polls).Error; err != nil {
			return nil, err
		}
		for i := range polls {
			item := polls[i].ContentItem()
			item.Author = &polls[i].User
			items = append(items, item)
		}
	}
	return items, nil
}

// ---- users & notifications ----

func (r *Repository) AddKarma(ctx context.Context, userID uint, delta int) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("karma", gorm.Expr("karma + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SaveNotification(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error)
}

// ListNotifications returns the newest notifications of a user.
func (r *Repository) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkNotificationRead flags one notification of the user as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *Repository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
