package utils

import (
	"agora/internal/models"
	"math"
	"sort"
	"time"
)

// RankConfig holds every constant of the score-based algorithms. The zero
// value is not usable; start from DefaultRankConfig.
type RankConfig struct {
	HotGravity       float64 // 时间重力
	HotCommentWeight float64
	HotFreshHours    float64 // 新帖加成窗口
	HotFreshBoost    float64
	HotBusyComments  int
	HotBusyBoost     float64

	RisingMinAge           float64 // velocity 分母下限
	RisingCommentW         float64
	RisingStaleHours       float64
	RisingStaleFactor      float64
	RisingLaunchHours      float64
	RisingLaunchEngagement float64
	RisingLaunchBoost      float64
	RisingEarlyHours       float64
	RisingEarlyVelocity    float64
	RisingEarlyBoost       float64

	TrendingComments     float64
	TrendingWindow       float64 // 小时
	TrendingRecency      float64
	TrendingStaleCut     float64
	TrendingBusyComments int
	TrendingBusyBoost    float64
	TrendingLiked        int
	TrendingLikedBoost   float64
	TrendingLoved        int
	TrendingLovedBoost   float64
	TrendingHotComments  int
	TrendingHotBoost     float64
}

var DefaultRankConfig = RankConfig{
	HotGravity:       1.5,
	HotCommentWeight: 0.5,
	HotFreshHours:    2,
	HotFreshBoost:    1.5,
	HotBusyComments:  5,
	HotBusyBoost:     1.2,

	RisingMinAge:           0.1,
	RisingCommentW:         2,
	RisingStaleHours:       12,
	RisingStaleFactor:      0.3,
	RisingLaunchHours:      1,
	RisingLaunchEngagement: 5,
	RisingLaunchBoost:      2,
	RisingEarlyHours:       3,
	RisingEarlyVelocity:    1,
	RisingEarlyBoost:       1.5,

	TrendingComments:     3,
	TrendingWindow:       48,
	TrendingRecency:      0.2,
	TrendingStaleCut:     0.5,
	TrendingBusyComments: 5,
	TrendingBusyBoost:    1.1,
	TrendingLiked:        10,
	TrendingLikedBoost:   1.1,
	TrendingLoved:        25,
	TrendingLovedBoost:   1.2,
	TrendingHotComments:  15,
	TrendingHotBoost:     1.2,
}

func ageHours(createdAt, now time.Time) float64 {
	h := now.Sub(createdAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// HotScore = net / (age+2)^1.5 + comments*0.5, with the vote term boosted
// for items younger than two hours and the whole score boosted for busy threads.
func (cfg RankConfig) HotScore(item models.ContentItem, now time.Time) float64 {
	age := ageHours(item.CreatedAt, now)

	voteTerm := float64(item.Net()) / math.Pow(age+2, cfg.HotGravity)
	if age < cfg.HotFreshHours {
		voteTerm *= cfg.HotFreshBoost
	}
	score := voteTerm + float64(item.CommentCount)*cfg.HotCommentWeight
	if item.CommentCount > cfg.HotBusyComments {
		score *= cfg.HotBusyBoost
	}
	return score
}

// RisingScore is engagement per hour of age with early-life multipliers.
// Only the first matching multiplier applies.
func (cfg RankConfig) RisingScore(item models.ContentItem, now time.Time) float64 {
	age := ageHours(item.CreatedAt, now)

	engagement := float64(item.Net()) + float64(item.CommentCount)*cfg.RisingCommentW
	velocity := engagement / math.Max(age, cfg.RisingMinAge)

	switch {
	case age > cfg.RisingStaleHours:
		return velocity * cfg.RisingStaleFactor
	case age < cfg.RisingLaunchHours && engagement > cfg.RisingLaunchEngagement:
		return velocity * cfg.RisingLaunchBoost
	case age < cfg.RisingEarlyHours && velocity > cfg.RisingEarlyVelocity:
		return velocity * cfg.RisingEarlyBoost
	}
	return velocity
}

// TrendingScore applies its multipliers cumulatively in a fixed order.
func (cfg RankConfig) TrendingScore(item models.ContentItem, now time.Time) float64 {
	age := ageHours(item.CreatedAt, now)

	recency := math.Max(0, cfg.TrendingWindow-age) * cfg.TrendingRecency
	score := float64(item.Net()) + float64(item.CommentCount)*cfg.TrendingComments + recency

	if item.CommentCount > cfg.TrendingBusyComments {
		score *= cfg.TrendingBusyBoost
	}
	if item.Upvotes > cfg.TrendingLiked {
		score *= cfg.TrendingLikedBoost
	}
	if item.Upvotes > cfg.TrendingLoved {
		score *= cfg.TrendingLovedBoost
	}
	if item.CommentCount > cfg.TrendingHotComments {
		score *= cfg.TrendingHotBoost
	}
	if age > cfg.TrendingWindow {
		score *= cfg.TrendingStaleCut
	}
	return score
}

// Score returns the order-by value of item under algo. For "new" it is the
// creation time in unix seconds.
func (cfg RankConfig) Score(algo models.SortAlgorithm, item models.ContentItem, now time.Time) float64 {
	switch algo {
	case models.SortNew:
		return float64(item.CreatedAt.Unix())
	case models.SortTop:
		return float64(item.Net())
	case models.SortRising:
		return cfg.RisingScore(item, now)
	case models.SortTrending:
		return cfg.TrendingScore(item, now)
	}
	return cfg.HotScore(item, now)
}

func HotScore(item models.ContentItem, now time.Time) float64 {
	return DefaultRankConfig.HotScore(item, now)
}

func RisingScore(item models.ContentItem, now time.Time) float64 {
	return DefaultRankConfig.RisingScore(item, now)
}

func TrendingScore(item models.ContentItem, now time.Time) float64 {
	return DefaultRankConfig.TrendingScore(item, now)
}

func Score(algo models.SortAlgorithm, item models.ContentItem, now time.Time) float64 {
	return DefaultRankConfig.Score(algo, item, now)
}

type scoredItem struct {
	item  models.ContentItem
	score float64
}

// RankItems ranks with DefaultRankConfig.
func RankItems(items []models.ContentItem, algo models.SortAlgorithm, now time.Time) []models.ContentItem {
	return DefaultRankConfig.Rank(items, algo, now)
}

// Rank returns a new slice ordered by algo, highest first. Ties go to the
// newer item, then to the higher ID. items is left untouched.
func (cfg RankConfig) Rank(items []models.ContentItem, algo models.SortAlgorithm, now time.Time) []models.ContentItem {
	if algo == "" {
		algo = models.SortHot
	}

	scored := make([]scoredItem, len(items))
	for i, it := range items {
		s := scoredItem{item: it}
		if algo != models.SortNew {
			s.score = cfg.Score(algo, it, now)
		}
		scored[i] = s
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if algo != models.SortNew && a.score != b.score {
			return a.score > b.score
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.After(b.item.CreatedAt)
		}
		return a.item.ID > b.item.ID
	})

	out := make([]models.ContentItem, len(scored))
	for i, s := range scored {
		out[i] = s.item
	}
	return out
}
