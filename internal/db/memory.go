package db

import (
	"agora/internal/models"
	"context"
	"sort"
	"sync"
	"time"
)

type voteKey struct {
	userID     uint
	targetID   uint
	targetType models.TargetType
}

// MemoryStore is an in-process store with the same contract as Repository,
// including the unique (user, target, type) vote index. It backs the
// "memory" database driver and the service tests.
type MemoryStore struct {
	mu sync.RWMutex

	Now func() time.Time

	nextID        uint
	users         map[uint]*models.User
	posts         map[uint]*models.Post
	polls         map[uint]*models.Poll
	comments      map[uint]*models.Comment
	votes         map[uint]*models.Vote
	voteIndex     map[voteKey]uint
	notifications []models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Now:       time.Now,
		users:     make(map[uint]*models.User),
		posts:     make(map[uint]*models.Post),
		polls:     make(map[uint]*models.Poll),
		comments:  make(map[uint]*models.Comment),
		votes:     make(map[uint]*models.Vote),
		voteIndex: make(map[voteKey]uint),
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) stamp(t *time.Time) {
	if t.IsZero() {
		*t = m.Now().UTC()
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ---- vote ledger ----

func (m *MemoryStore) FindVote(ctx context.Context, userID, targetID uint, targetType models.TargetType) (*models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.voteIndex[voteKey{userID, targetID, targetType}]
	if !ok {
		return nil, ErrNotFound
	}
	v := *m.votes[id]
	return &v, nil
}

func (m *MemoryStore) createVoteLocked(vote *models.Vote) error {
	key := voteKey{vote.UserID, vote.TargetID, vote.TargetType}
	if _, exists := m.voteIndex[key]; exists {
		return ErrConflict
	}
	vote.ID = m.id()
	m.stamp(&vote.CreatedAt)
	v := *vote
	m.votes[v.ID] = &v
	m.voteIndex[key] = v.ID
	return nil
}

func (m *MemoryStore) deleteVoteLocked(vote *models.Vote) error {
	existing, ok := m.votes[vote.ID]
	if !ok || existing.Direction != vote.Direction {
		return ErrConflict
	}
	delete(m.votes, vote.ID)
	delete(m.voteIndex, voteKey{existing.UserID, existing.TargetID, existing.TargetType})
	return nil
}

func (m *MemoryStore) CreateVote(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createVoteLocked(vote)
}

func (m *MemoryStore) DeleteVote(ctx context.Context, vote *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteVoteLocked(vote)
}

func (m *MemoryStore) ReplaceVote(ctx context.Context, old, next *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.votes[old.ID]
	if !ok || existing.Direction != old.Direction {
		return ErrConflict
	}
	saved := *existing
	if err := m.deleteVoteLocked(old); err != nil {
		return err
	}
	if err := m.createVoteLocked(next); err != nil {
		// roll back
		m.votes[saved.ID] = &saved
		m.voteIndex[voteKey{saved.UserID, saved.TargetID, saved.TargetType}] = saved.ID
		return err
	}
	return nil
}

func (m *MemoryStore) CountVotes(ctx context.Context, targetID uint, targetType models.TargetType) (models.Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c models.Counts
	for _, v := range m.votes {
		if v.TargetID != targetID || v.TargetType != targetType {
			continue
		}
		switch v.Direction {
		case models.DirectionUp:
			c.Upvotes++
		case models.DirectionDown:
			c.Downvotes++
		}
	}
	return c, nil
}

// VoteRows returns how many ledger rows exist for the key. Used by tests.
func (m *MemoryStore) VoteRows(userID, targetID uint, targetType models.TargetType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, v := range m.votes {
		if v.UserID == userID && v.TargetID == targetID && v.TargetType == targetType {
			n++
		}
	}
	return n
}

func (m *MemoryStore) UserVotes(ctx context.Context, userID uint, targetType models.TargetType, targetIDs []uint) (map[uint]models.Direction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint]models.Direction, len(targetIDs))
	for _, id := range targetIDs {
		if vid, ok := m.voteIndex[voteKey{userID, id, targetType}]; ok {
			out[id] = m.votes[vid].Direction
		}
	}
	return out, nil
}

// ---- targets ----

func (m *MemoryStore) TargetAuthor(ctx context.Context, targetID uint, targetType models.TargetType) (uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch targetType {
	case models.TargetPost:
		if p, ok := m.posts[targetID]; ok {
			return p.UserID, nil
		}
	case models.TargetPoll:
		if p, ok := m.polls[targetID]; ok {
			return p.UserID, nil
		}
	case models.TargetComment:
		if c, ok := m.comments[targetID]; ok {
			return c.UserID, nil
		}
	}
	return 0, ErrNotFound
}

func (m *MemoryStore) SaveCounts(ctx context.Context, targetID uint, targetType models.TargetType, counts models.Counts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch targetType {
	case models.TargetPost:
		if p, ok := m.posts[targetID]; ok {
			p.Upvotes, p.Downvotes = counts.Upvotes, counts.Downvotes
			return nil
		}
	case models.TargetPoll:
		if p, ok := m.polls[targetID]; ok {
			p.Upvotes, p.Downvotes = counts.Upvotes, counts.Downvotes
			return nil
		}
	case models.TargetComment:
		if c, ok := m.comments[targetID]; ok {
			c.Upvotes, c.Downvotes = counts.Upvotes, counts.Downvotes
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListTargetIDs(ctx context.Context, targetType models.TargetType) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []uint
	switch targetType {
	case models.TargetPost:
		for id := range m.posts {
			ids = append(ids, id)
		}
	case models.TargetPoll:
		for id := range m.polls {
			ids = append(ids, id)
		}
	case models.TargetComment:
		for id := range m.comments {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ---- comments ----

func (m *MemoryStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = m.id()
	m.stamp(&comment.CreatedAt)
	c := *comment
	m.comments[c.ID] = &c
	return nil
}

func (m *MemoryStore) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func matchesRoot(c *models.Comment, root models.ContentRef) bool {
	r, ok := c.Root()
	return ok && r == root
}

func (m *MemoryStore) ListComments(ctx context.Context, root models.ContentRef) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Comment
	for _, c := range m.comments {
		if matchesRoot(c, root) {
			cc := *c
			if u, ok := m.users[c.UserID]; ok {
				cc.User = *u
			}
			out = append(out, cc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CountComments(ctx context.Context, root models.ContentRef) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.comments {
		if matchesRoot(c, root) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveCommentCount(ctx context.Context, root models.ContentRef, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch root.Type {
	case models.ContentPost:
		if p, ok := m.posts[root.ID]; ok {
			p.CommentCount = count
			return nil
		}
	case models.ContentPoll:
		if p, ok := m.polls[root.ID]; ok {
			p.CommentCount = count
			return nil
		}
	}
	return ErrNotFound
}

// ---- content ----

func (m *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.id()
	m.stamp(&post.CreatedAt)
	post.UpdatedAt = post.CreatedAt
	p := *post
	m.posts[p.ID] = &p
	return nil
}

func (m *MemoryStore) CreatePoll(ctx context.Context, poll *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll.ID = m.id()
	m.stamp(&poll.CreatedAt)
	poll.UpdatedAt = poll.CreatedAt
	for i := range poll.Options {
		poll.Options[i].ID = m.id()
		poll.Options[i].PollID = poll.ID
	}
	p := *poll
	p.Options = append([]models.PollOption(nil), poll.Options...)
	m.polls[p.ID] = &p
	return nil
}

func (m *MemoryStore) itemLocked(ref models.ContentRef) (models.ContentItem, bool) {
	var item models.ContentItem
	switch ref.Type {
	case models.ContentPost:
		p, ok := m.posts[ref.ID]
		if !ok {
			return item, false
		}
		item = p.ContentItem()
	case models.ContentPoll:
		p, ok := m.polls[ref.ID]
		if !ok {
			return item, false
		}
		item = p.ContentItem()
	default:
		return item, false
	}
	if u, ok := m.users[item.AuthorID]; ok {
		author := *u
		item.Author = &author
	}
	return item, true
}

func (m *MemoryStore) GetContent(ctx context.Context, ref models.ContentRef) (*models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.itemLocked(ref)
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (m *MemoryStore) DeleteContent(ctx context.Context, ref models.ContentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.itemLocked(ref); !ok {
		return ErrNotFound
	}

	dropVotes := func(targetID uint, tt models.TargetType) {
		for id, v := range m.votes {
			if v.TargetID == targetID && v.TargetType == tt {
				delete(m.votes, id)
				delete(m.voteIndex, voteKey{v.UserID, v.TargetID, v.TargetType})
			}
		}
	}
	for id, c := range m.comments {
		if matchesRoot(c, ref) {
			dropVotes(id, models.TargetComment)
			delete(m.comments, id)
		}
	}
	dropVotes(ref.ID, ref.Type.TargetType())

	if ref.Type == models.ContentPost {
		delete(m.posts, ref.ID)
	} else {
		delete(m.polls, ref.ID)
	}
	return nil
}

func (m *MemoryStore) ListContent(ctx context.Context, f models.ContentFilter, now time.Time) ([]models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	since := f.TimeWindow.Since(now)
	keep := func(it models.ContentItem) bool {
		if f.OrganizationID != nil && (it.OrganizationID == nil || *it.OrganizationID != *f.OrganizationID) {
			return false
		}
		if f.BowlID != nil && (it.BowlID == nil || *it.BowlID != *f.BowlID) {
			return false
		}
		return since.IsZero() || !it.CreatedAt.Before(since)
	}

	var items []models.ContentItem
	if f.Type == "" || f.Type == models.ContentPost {
		for id := range m.posts {
			if it, _ := m.itemLocked(models.ContentRef{Type: models.ContentPost, ID: id}); keep(it) {
				items = append(items, it)
			}
		}
	}
	if f.Type == "" || f.Type == models.ContentPoll {
		for id := range m.polls {
			if it, _ := m.itemLocked(models.ContentRef{Type: models.ContentPoll, ID: id}); keep(it) {
				items = append(items, it)
			}
		}
	}

	byNet := f.Sort == models.SortTop
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if byNet && a.Net() != b.Net() {
			return a.Net() > b.Net()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if n := candidateLimit(f.Sort); n > 0 && len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// ---- users & notifications ----

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.id()
	} else if user.ID > m.nextID {
		m.nextID = user.ID
	}
	m.stamp(&user.CreatedAt)
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) AddKarma(ctx context.Context, userID uint, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Karma += delta
	return nil
}

func (m *MemoryStore) SaveNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	m.stamp(&n.CreatedAt)
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	all := m.Notifications(userID)
	out := make([]models.Notification, 0, len(all))
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryStore) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if n := &m.notifications[i]; n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.notifications {
		if row := &m.notifications[i]; row.UserID == userID && !row.IsRead {
			row.IsRead = true
			n++
		}
	}
	return n, nil
}

// Notifications returns the notifications addressed to userID, oldest first.
func (m *MemoryStore) Notifications(userID uint) []models.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
