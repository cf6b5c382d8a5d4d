package cache

import (
	"context"
	"testing"
	"time"

	"travelog/internal/models"
)

func TestNopNeverHits(t *testing.T) {
	var c Leaderboard = Nop{}
	ctx := context.Background()
	c.Set(ctx, "followers", 0, []models.LeaderboardEntry{{ID: 1}})
	if _, _, ok := c.Get(ctx, "followers"); ok {
		t.Error("Nop.Get reported a hit")
	}
	c.Invalidate(ctx)
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewRedis(ctx, "127.0.0.1:1", "", 0, time.Minute); err == nil {
		t.Fatal("expected ping error for closed port")
	}
}

func TestDataKeyPerVersionAndSort(t *testing.T) {
	if got := dataKey(3, "likes"); got != "travelog:leaderboard:3:likes" {
		t.Errorf("dataKey = %q", got)
	}
	if dataKey(3, "likes") == dataKey(4, "likes") || dataKey(3, "likes") == dataKey(3, "posts") {
		t.Error("keys collide across versions or sort orders")
	}
}
