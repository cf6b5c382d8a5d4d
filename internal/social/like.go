package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"travelog/internal/db"
)

type LikeResult struct {
	Liked bool `json:"liked"`
}

// ParseID parses a positive base-10 id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, ErrInvalidArgument)
	}
	return id, nil
}

// ToggleLike likes postID for actorID, or unlikes it if already liked. The
// like row and the post author's totalLikes change in one transaction.
func (s *Store) ToggleLike(ctx context.Context, actorID int64, postID string) (LikeResult, error) {
	if actorID <= 0 {
		return LikeResult{}, ErrUnauthorized
	}
	pid, err := ParseID(postID)
	if err != nil {
		return LikeResult{}, err
	}

	liked, err := s.toggle(ctx, "like", func(tx *db.Tx) (bool, error) {
		if err := requireUser(ctx, tx, actorID, ErrUnauthorized); err != nil {
			return false, err
		}

		var authorID int64
		err := tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = ?`, pid).Scan(&authorID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("post %d: %w", pid, ErrNotFound)
		}
		if err != nil {
			return false, fmt.Errorf("look up post %d: %w", pid, err)
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM post_likes WHERE user_id = ? AND post_id = ?)`,
			actorID, pid).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("look up like: %w", err)
		}

		delta := 1
		if exists {
			delta = -1
			err = deleteEdge(ctx, tx, `DELETE FROM post_likes WHERE user_id = ? AND post_id = ?`, actorID, pid)
		} else {
			err = insertEdge(ctx, tx,
				`INSERT INTO post_likes(user_id, post_id, created_at) VALUES(?, ?, ?)`,
				actorID, pid, s.now())
		}
		if err != nil {
			return false, err
		}
		if err := addToCounter(ctx, tx, "total_likes", authorID, delta); err != nil {
			return false, err
		}
		return !exists, nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Liked: liked}, nil
}

// PostLikeCount counts the like rows of one post. It is never cached or
// denormalized.
func (s *Store) PostLikeCount(ctx context.Context, postID int64) (int64, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return 0, err
	}
	var n int64
	if err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = ?`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count likes of post %d: %w", postID, err)
	}
	return n, nil
}

func (s *Store) requirePost(ctx context.Context, postID int64) error {
	var one int
	err := s.conn.QueryRow(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up post %d: %w", postID, err)
	}
	return nil
}
