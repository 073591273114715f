package models

import (
	"time"
)

// Poll 投票帖。排序时与 Post 结构一致。
type Poll struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"not null;index" json:"user_id"`
	User           User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	OrganizationID *uint        `gorm:"index" json:"organization_id"`
	BowlID         *uint        `gorm:"index" json:"bowl_id"`
	Title          string       `gorm:"not null" json:"title"`
	Content        string       `gorm:"type:text" json:"content"`
	Options        []PollOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"options"`
	Upvotes        int          `gorm:"not null;default:0" json:"upvotes"`
	Downvotes      int          `gorm:"not null;default:0" json:"downvotes"`
	CommentCount   int          `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type PollOption struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PollID uint   `gorm:"not null;index" json:"poll_id"`
	Label  string `gorm:"not null" json:"label"`
}

func (p *Poll) ContentItem() ContentItem {
	return ContentItem{
		ID:             p.ID,
		Type:           ContentPoll,
		AuthorID:       p.UserID,
		OrganizationID: p.OrganizationID,
		BowlID:         p.BowlID,
		Title:          p.Title,
		Upvotes:        p.Upvotes,
		Downvotes:      p.Downvotes,
		CommentCount:   p.CommentCount,
		CreatedAt:      p.CreatedAt,
	}
}
