package social

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"travelog/internal/db"
	"travelog/internal/models"
)

// ========================================
// Test Fixtures
// ========================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "social.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("db.Migrate: %v", err)
	}

	s := NewStore(conn, nil)
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func mustUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUser{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Name:         username,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u.ID
}

func validPost(location *Location) PostInput {
	return PostInput{
		Title:    "Steppe diary",
		Excerpt:  "Three days west of the capital",
		Content:  "We left at dawn and drove until the road ran out.",
		Category: "Road Trip",
		ImageURL: "https://img.example.com/steppe.jpg",
		Location: location,
	}
}

func mustPost(t *testing.T, s *Store, authorID int64, location string) int64 {
	t.Helper()
	var loc *Location
	if location != "" {
		loc = &Location{Name: location}
	}
	p, err := s.CreatePost(context.Background(), authorID, validPost(loc))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return p.ID
}

func stored(t *testing.T, s *Store, userID int64) counters {
	t.Helper()
	var c counters
	err := s.conn.QueryRow(context.Background(),
		`SELECT posts_count, total_likes, followers_count, following_count, countries_visited FROM users WHERE id = ?`,
		userID).Scan(&c.posts, &c.likes, &c.followers, &c.following, &c.visited)
	if err != nil {
		t.Fatalf("read counters of %d: %v", userID, err)
	}
	return c
}

func countRows(t *testing.T, s *Store, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := s.conn.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// assertGraphConsistent checks every user's follow and like counters
// against the rows.
func assertGraphConsistent(t *testing.T, s *Store, users ...int64) {
	t.Helper()
	for _, id := range users {
		c := stored(t, s, id)
		followers := countRows(t, s, `SELECT COUNT(*) FROM follows WHERE following_id = ?`, id)
		following := countRows(t, s, `SELECT COUNT(*) FROM follows WHERE follower_id = ?`, id)
		likes := countRows(t, s, `SELECT COUNT(*) FROM post_likes l JOIN posts p ON p.id = l.post_id WHERE p.author_id = ?`, id)
		if c.followers != followers || c.following != following || c.likes != likes {
			t.Errorf("user %d: stored followers=%d following=%d likes=%d, rows say %d/%d/%d",
				id, c.followers, c.following, c.likes, followers, following, likes)
		}
	}
}

// recordingCache is an in-memory cache.Leaderboard that counts calls and
// follows the same version rule as the Redis cache.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[string][]models.LeaderboardEntry
	version     int64
	gets, hits  int
	invalidated int
	// invalidateErrs records ctx.Err() seen by each Invalidate.
	invalidateErrs []error
	// beforeSet runs at the start of Set, outside the lock.
	beforeSet func()
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]models.LeaderboardEntry{}}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]models.LeaderboardEntry, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	e, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return e, c.version, ok
}

func (c *recordingCache) Set(_ context.Context, key string, version int64, e []models.LeaderboardEntry) {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return
	}
	c.entries[key] = e
}

func (c *recordingCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.version++
	c.invalidateErrs = append(c.invalidateErrs, ctx.Err())
	c.entries = map[string][]models.LeaderboardEntry{}
}
