package kvstore

import (
	"context"
	"time"
)

// Member is a sorted-set member together with its score.
type Member struct {
	ID    string
	Score float64
}

// MembersResult is one entry of a batched range read. Err is set when that key alone failed.
type MembersResult struct {
	Members []Member
	Err     error
}

// KeyMember addresses a single member inside a sorted set.
type KeyMember struct {
	Key    string
	Member string
}

// ScoreResult is one entry of a batched score lookup. Found is false when the member is absent.
type ScoreResult struct {
	Score float64
	Found bool
	Err   error
}

// Pipe queues writes that are executed atomically by Store.Pipeline.
type Pipe interface {
	IncrementScore(key, member string, delta float64)
	SetWithScore(key, member string, score float64)
	DeleteKey(key string)
	Expire(key string, ttl time.Duration)
}

// Store is the sorted-set contract shared by the event recorder, the similarity builder and the scoring engine.
//
// SetWithScore never lowers an existing score, so timestamps written through it only move forward.
// TopNByScore returns members in descending score order; n <= 0 means all members.
type Store interface {
	IncrementScore(ctx context.Context, key, member string, delta float64) error
	SetWithScore(ctx context.Context, key, member string, score float64) error
	TopNByScore(ctx context.Context, key string, n int) ([]Member, error)
	DeleteKey(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	ScanKeysByPattern(ctx context.Context, pattern string) ([]string, error)
	Pipeline(ctx context.Context, fn func(pipe Pipe) error) error

	// batched reads, same results as issuing the single-key calls one by one
	TopNByScoreMany(ctx context.Context, keys []string, n int) ([]MembersResult, error)
	ScoreMany(ctx context.Context, lookups []KeyMember) ([]ScoreResult, error)
}

// IDs returns the member ids in their current order.
func IDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// ToMap indexes members by id.
func ToMap(members []Member) map[string]float64 {
	m := make(map[string]float64, len(members))
	for _, member := range members {
		m[member.ID] = member.Score
	}
	return m
}
