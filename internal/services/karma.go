package services

import "agora/internal/models"

// 积分权重：每一票折算为 2 点 karma
const KarmaPerVote = 2

// KarmaDelta returns the karma change of a post author when a vote moves
// from old to next. Fresh upvote +2, fresh downvote -2, switch ±4, undo
// reverses the original.
func KarmaDelta(old, next models.Direction) int {
	return KarmaPerVote * (next.Value() - old.Value())
}

// earnsKarma reports whether a vote on the target moves its author's karma
// and notifies them. Only other users' votes on posts count.
func earnsKarma(targetType models.TargetType, voterID, authorID uint) bool {
	return targetType == models.TargetPost && voterID != authorID
}
