// Package cache holds the leaderboard read cache.
package cache

import (
	"context"

	"travelog/internal/models"
)

// Leaderboard caches ranked users per sort key. Implementations swallow and
// log their own failures: a cache problem must never fail a read or a write.
//
// Every Invalidate bumps a version. Get reports the version it saw, and Set
// only stores entries when no Invalidate has run since that version, so rows
// read before a committed change never overwrite the invalidation.
type Leaderboard interface {
	Get(ctx context.Context, sortKey string) (entries []models.LeaderboardEntry, version int64, ok bool)
	Set(ctx context.Context, sortKey string, version int64, entries []models.LeaderboardEntry)
	Invalidate(ctx context.Context)
}

// Nop never caches.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]models.LeaderboardEntry, int64, bool) {
	return nil, 0, false
}
func (Nop) Set(context.Context, string, int64, []models.LeaderboardEntry) {}
func (Nop) Invalidate(context.Context)                                    {}
