package social

import (
	"context"
	"fmt"
	"strings"

	"travelog/internal/models"
)

// Leaderboard sort keys and the counter each one ranks by.
var leaderboardColumns = map[string]string{
	"likes":     "total_likes",
	"followers": "followers_count",
	"posts":     "posts_count",
}

const defaultLeaderboardSort = "followers"

// NormalizeSort maps an unknown or empty key to followers.
func NormalizeSort(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := leaderboardColumns[key]; ok {
		return key
	}
	return defaultLeaderboardSort
}

// Leaderboard ranks users by one counter, highest first, ties by id. The top
// MaxLeaderboardLimit rows per key are cached; limit slices that list.
func (s *Store) Leaderboard(ctx context.Context, sortKey string, limit int) ([]models.LeaderboardEntry, error) {
	sortKey = NormalizeSort(sortKey)
	limit = clampLimit(limit, DefaultLeaderboardLimit, MaxLeaderboardLimit)

	entries, version, ok := s.cache.Get(ctx, sortKey)
	if ok {
		return head(entries, limit), nil
	}
	entries, err := s.rankUsers(ctx, sortKey)
	if err != nil {
		return nil, err
	}
	// Dropped by the cache if a mutation committed since Get.
	s.cache.Set(ctx, sortKey, version, entries)
	return head(entries, limit), nil
}

func (s *Store) rankUsers(ctx context.Context, sortKey string) ([]models.LeaderboardEntry, error) {
	column := leaderboardColumns[sortKey]
	rows, err := s.conn.Query(ctx, `SELECT id, username, name, avatar_url,
		posts_count, total_likes, followers_count, following_count, countries_visited
		FROM users ORDER BY `+column+` DESC, id ASC LIMIT ?`, MaxLeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard by %s: %w", sortKey, err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Name, &e.AvatarURL,
			&e.PostsCount, &e.TotalLikes, &e.FollowersCount, &e.FollowingCount, &e.CountriesVisited); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard by %s: %w", sortKey, err)
	}
	return entries, nil
}

func head(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}
