package models

import (
	"time"
)

type Post struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	OrganizationID *uint     `gorm:"index" json:"organization_id"`
	BowlID         *uint     `gorm:"index" json:"bowl_id"`
	Title          string    `gorm:"not null" json:"title"`
	Content        string    `gorm:"type:text" json:"content"`
	Upvotes        int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes      int       `gorm:"not null;default:0" json:"downvotes"`
	CommentCount   int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *Post) ContentItem() ContentItem {
	return ContentItem{
		ID:             p.ID,
		Type:           ContentPost,
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
