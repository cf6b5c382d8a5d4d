// Package social keeps the denormalized user counters (followersCount,
// followingCount, totalLikes, postsCount, countriesVisited) consistent with
// the follow, like and post rows they summarize.
//
// Every counter write happens inside the same transaction as the row change
// it reflects. Reconcile recomputes all counters from the rows and repairs
// any drift.
package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"travelog/internal/cache"
	"travelog/internal/db"
	"travelog/internal/models"
)

type Store struct {
	conn  *db.Conn
	cache cache.Leaderboard
	now   func() time.Time

	// visitedRegions counts the reference regions among a user's post
	// locations. Replaced in tests to force failures.
	visitedRegions func(ctx context.Context, q db.Querier, userID int64) (int64, error)
}

// NewStore returns a store over conn. A nil lb disables leaderboard caching.
func NewStore(conn *db.Conn, lb cache.Leaderboard) *Store {
	if lb == nil {
		lb = cache.Nop{}
	}
	return &Store{
		conn:           conn,
		cache:          lb,
		now:            func() time.Time { return time.Now().UTC() },
		visitedRegions: countVisitedRegions,
	}
}

// Ping checks the datastore.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// invalidateLeaderboard runs after a commit. It detaches from ctx's
// cancellation so a client hanging up cannot leave the cache stale.
func (s *Store) invalidateLeaderboard(ctx context.Context) {
	s.cache.Invalidate(context.WithoutCancel(ctx))
}

// requireUser returns missing wrapped with the id when no user row exists.
func requireUser(ctx context.Context, q db.Querier, id int64, missing error) error {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", id, missing)
	}
	if err != nil {
		return fmt.Errorf("look up user %d: %w", id, err)
	}
	return nil
}

// addToCounter adjusts one counter column by delta, never below zero.
// column is always one of the users counter columns, never caller input.
func addToCounter(ctx context.Context, tx *db.Tx, column string, userID int64, delta int) error {
	res, err := tx.Exec(ctx,
		`UPDATE users SET `+column+` = CASE WHEN `+column+` + ? < 0 THEN 0 ELSE `+column+` + ? END WHERE id = ?`,
		delta, delta, userID)
	if err != nil {
		return fmt.Errorf("update %s of user %d: %w", column, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s of user %d: %w", column, userID, err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

const userColumns = `id, email, username, password_hash, name, bio, avatar_url,
	posts_count, total_likes, followers_count, following_count, countries_visited, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Name, &u.Bio, &u.AvatarURL,
		&u.PostsCount, &u.TotalLikes, &u.FollowersCount, &u.FollowingCount, &u.CountriesVisited, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
