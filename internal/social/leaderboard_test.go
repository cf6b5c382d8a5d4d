package social

import (
	"context"
	"strconv"
	"testing"

	"travelog/internal/models"
)

func seedLeaderboard(t *testing.T, s *Store) (a, b, c int64) {
	t.Helper()
	ctx := context.Background()
	a, b, c = mustUser(t, s, "anu"), mustUser(t, s, "bat"), mustUser(t, s, "saraa")

	// followers: c=2, a=1, b=0
	for _, pair := range [][2]int64{{a, c}, {b, c}, {c, a}} {
		if _, err := s.ToggleFollow(ctx, pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}
	// posts: b=3, a=1, c=0
	mustPost(t, s, b, "")
	mustPost(t, s, b, "")
	pb := mustPost(t, s, b, "")
	pa := mustPost(t, s, a, "")
	// likes: a=2, b=1, c=0
	for _, like := range []struct {
		actor, post int64
	}{{b, pa}, {c, pa}, {a, pb}} {
		if _, err := s.ToggleLike(ctx, like.actor, strconv.FormatInt(like.post, 10)); err != nil {
			t.Fatal(err)
		}
	}
	return a, b, c
}

func usernames(entries []models.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Username
	}
	return out
}

func TestLeaderboardSortKeys(t *testing.T) {
	s := newTestStore(t)
	seedLeaderboard(t, s)
	ctx := context.Background()

	tests := []struct {
		sort string
		want []string
	}{
		{"followers", []string{"saraa", "anu", "bat"}},
		{"likes", []string{"anu", "bat", "saraa"}},
		{"posts", []string{"bat", "anu", "saraa"}},
		{"", []string{"saraa", "anu", "bat"}},
		{"bogus", []string{"saraa", "anu", "bat"}},
		{" LIKES ", []string{"anu", "bat", "saraa"}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			got, err := s.Leaderboard(ctx, tt.sort, 0)
			if err != nil {
				t.Fatal(err)
			}
			if names := usernames(got); len(names) != 3 || names[0] != tt.want[0] || names[1] != tt.want[1] || names[2] != tt.want[2] {
				t.Errorf("Leaderboard(%q) = %v, want %v", tt.sort, names, tt.want)
			}
		})
	}
}

func TestLeaderboardTiesBreakByID(t *testing.T) {
	s := newTestStore(t)
	first := mustUser(t, s, "zaya")
	second := mustUser(t, s, "anu")

	got, err := s.Leaderboard(context.Background(), "likes", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != first || got[1].ID != second {
		t.Errorf("tie order = %v", usernames(got))
	}
}

func TestLeaderboardProjection(t *testing.T) {
	s := newTestStore(t)
	_, b, _ := seedLeaderboard(t, s)

	got, err := s.Leaderboard(context.Background(), "posts", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("limit 1 returned %d rows", len(got))
	}
	e := got[0]
	if e.ID != b || e.PostsCount != 3 || e.TotalLikes != 1 || e.FollowersCount != 0 || e.FollowingCount != 1 {
		t.Errorf("entry = %+v", e)
	}
}

func TestLeaderboardLimitClamp(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < MaxLeaderboardLimit+5; i++ {
		mustUser(t, s, "user"+strconv.Itoa(i))
	}
	ctx := context.Background()

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLeaderboardLimit},
		{-4, DefaultLeaderboardLimit},
		{7, 7},
		{1000, MaxLeaderboardLimit},
	}
	for _, tt := range tests {
		got, err := s.Leaderboard(ctx, "followers", tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("Leaderboard(limit=%d) returned %d rows, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestLeaderboardUsesCache(t *testing.T) {
	s := newTestStore(t)
	lb := newRecordingCache()
	s.cache = lb
	ctx := context.Background()
	a, b := mustUser(t, s, "anu"), mustUser(t, s, "bat")

	if _, err := s.Leaderboard(ctx, "followers", 5); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Leaderboard(ctx, "followers", 1); err != nil {
		t.Fatal(err)
	}
	if lb.hits != 1 {
		t.Errorf("cache hits = %d, want 1", lb.hits)
	}

	if _, err := s.ToggleFollow(ctx, a, b); err != nil {
		t.Fatal(err)
	}
	got, err := s.Leaderboard(ctx, "followers", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != b || got[0].FollowersCount != 1 {
		t.Errorf("stale leaderboard after toggle: %+v", got)
	}
	if lb.hits != 1 {
		t.Errorf("read after invalidation was served from cache")
	}
}

func TestLeaderboardDropsRowsReadBeforeCommittedToggle(t *testing.T) {
	s := newTestStore(t)
	lb := newRecordingCache()
	s.cache = lb
	ctx := context.Background()
	a, b := mustUser(t, s, "anu"), mustUser(t, s, "bat")

	// A toggle commits between the ranking query and the cache write.
	lb.beforeSet = func() {
		lb.beforeSet = nil
		if _, err := s.ToggleFollow(ctx, a, b); err != nil {
			t.Errorf("ToggleFollow: %v", err)
		}
	}
	first, err := s.Leaderboard(ctx, "followers", 5)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].FollowersCount != 0 {
		t.Fatalf("first read should predate the toggle: %+v", first)
	}

	got, err := s.Leaderboard(ctx, "followers", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != b || got[0].FollowersCount != 1 {
		t.Errorf("leaderboard after committed toggle = %+v, want bat with 1 follower", got)
	}
	if lb.hits != 0 {
		t.Errorf("cache hits = %d, want 0", lb.hits)
	}
}

func TestInvalidationIgnoresCancelledContext(t *testing.T) {
	s := newTestStore(t)
	lb := newRecordingCache()
	s.cache = lb

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.invalidateLeaderboard(ctx)

	if len(lb.invalidateErrs) != 1 || lb.invalidateErrs[0] != nil {
		t.Errorf("invalidate saw ctx errors %v, want one nil", lb.invalidateErrs)
	}
}
