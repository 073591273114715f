package services

import "errors"

var (
	// ErrInvalidTarget 投票或评论的目标不存在
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidVote is returned for an unknown target type or direction.
	ErrInvalidVote = errors.New("invalid vote")
	// ErrInvalidParent is returned when a reply's parent is missing or
	// belongs to another post or poll.
	ErrInvalidParent = errors.New("invalid parent comment")
	// ErrInvalidContent is returned for empty or malformed content payloads.
	ErrInvalidContent = errors.New("invalid content")
	// ErrWriteConflict is returned once every retry of a toggle lost a
	// storage race.
	ErrWriteConflict = errors.New("vote write conflict")
	// ErrAggregationFailure marks a counter recompute that failed after the
	// ledger was already written. Callers log it; the vote stands.
	ErrAggregationFailure = errors.New("counter aggregation failed")
	// ErrForbidden 非作者操作
	ErrForbidden = errors.New("forbidden")
)
