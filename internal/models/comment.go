package models

import (
	"time"
)

// Comment belongs to exactly one post or poll. ParentID points at another
// comment of the same root, nil for top-level comments.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	PostID    *uint     `gorm:"index" json:"post_id,omitempty"`
	PollID    *uint     `gorm:"index" json:"poll_id,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
}

// Root returns the post or poll the comment hangs off. ok is false for
// comments that reference neither.
func (c *Comment) Root() (root ContentRef, ok bool) {
	switch {
	case c.PostID != nil:
		return ContentRef{Type: ContentPost, ID: *c.PostID}, true
	case c.PollID != nil:
		return ContentRef{Type: ContentPoll, ID: *c.PollID}, true
	}
	return ContentRef{}, false
}
