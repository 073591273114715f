package models

import (
	"time"
)

type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetPoll    TargetType = "poll"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetPost, TargetComment, TargetPoll:
		return true
	}
	return false
}

// Direction 投票方向。none 表示未投票。
type Direction string

const (
	DirectionNone Direction = "none"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Value maps a direction onto +1 / -1 / 0.
func (d Direction) Value() int {
	switch d {
	case DirectionUp:
		return 1
	case DirectionDown:
		return -1
	}
	return 0
}

// Vote is one ledger row. The unique index keeps a single row per
// (user, target, target type); concurrent inserts lose on the index.
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_vote_user_target,priority:1" json:"user_id"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_user_target,priority:2;index:idx_vote_target,priority:1" json:"target_id"`
	TargetType TargetType `gorm:"type:varchar(10);not null;uniqueIndex:idx_vote_user_target,priority:3;index:idx_vote_target,priority:2" json:"target_type"`
	Direction  Direction  `gorm:"type:varchar(4);not null" json:"direction"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Counts are the derived up/down totals of a target.
type Counts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}
