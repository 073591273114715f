package models

import (
	"fmt"
	"strings"
	"time"
)

type ContentType string

const (
	ContentPost ContentType = "post"
	ContentPoll ContentType = "poll"
)

func (t ContentType) TargetType() TargetType {
	return TargetType(t)
}

// ContentRef identifies a post or poll.
type ContentRef struct {
	Type ContentType `json:"type"`
	ID   uint        `json:"id"`
}

// ContentItem is the ranking view shared by posts and polls.
type ContentItem struct {
	ID             uint        `json:"id"`
	Type           ContentType `json:"type"`
	AuthorID       uint        `json:"author_id"`
	Author         *User       `json:"author,omitempty"`
	OrganizationID *uint       `json:"organization_id,omitempty"`
	BowlID         *uint       `json:"bowl_id,omitempty"`
	Title          string      `json:"title"`
	Upvotes        int         `json:"upvotes"`
	Downvotes      int         `json:"downvotes"`
	CommentCount   int         `json:"comment_count"`
	CreatedAt      time.Time   `json:"created_at"`
	UserVote       Direction   `json:"user_vote,omitempty"`
}

func (c ContentItem) Net() int {
	return c.Upvotes - c.Downvotes
}

type SortAlgorithm string

const (
	SortHot      SortAlgorithm = "hot"
	SortNew      SortAlgorithm = "new"
	SortTop      SortAlgorithm = "top"
	SortRising   SortAlgorithm = "rising"
	SortTrending SortAlgorithm = "trending"
)

// ParseSort 未知或为空时回退到 hot
func ParseSort(s string) SortAlgorithm {
	switch SortAlgorithm(strings.ToLower(strings.TrimSpace(s))) {
	case SortNew:
		return SortNew
	case SortTop:
		return SortTop
	case SortRising:
		return SortRising
	case SortTrending:
		return SortTrending
	}
	return SortHot
}

type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
)

func ParseTimeWindow(s string) TimeWindow {
	switch w := TimeWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear:
		return w
	}
	return WindowAll
}

// Since returns the lower createdAt bound of the window, zero for "all".
func (w TimeWindow) Since(now time.Time) time.Time {
	switch w {
	case WindowHour:
		return now.Add(-time.Hour)
	case WindowDay:
		return now.AddDate(0, 0, -1)
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, -1, 0)
	case WindowYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// ContentFilter is the filter bag of a content listing.
// An empty Type lists posts and polls together.
type ContentFilter struct {
	OrganizationID *uint
	BowlID         *uint
	Type           ContentType
	TimeWindow     TimeWindow
	Sort           SortAlgorithm
	UserID         uint
	Limit          int
}

// CacheKey is the canonical signature of the filter. Defaults are
// normalised first so equivalent filters share an entry.
func (f ContentFilter) CacheKey() string {
	window := f.TimeWindow
	if window == "" {
		window = WindowAll
	}
	sort := f.Sort
	if sort == "" {
		sort = SortHot
	}
	typ := string(f.Type)
	if typ == "" {
		typ = "*"
	}
	return fmt.Sprintf("content:org=%s:bowl=%s:type=%s:window=%s:sort=%s:user=%d:limit=%d",
		optID(f.OrganizationID), optID(f.BowlID), typ, window, sort, f.UserID, f.Limit)
}

func optID(id *uint) string {
	if id == nil {
		return "*"
	}
	return fmt.Sprintf("%d", *id)
}
