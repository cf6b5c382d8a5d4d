package social

import (
	"context"
	"fmt"

	"travelog/internal/db"
)

type FollowResult struct {
	Followed bool `json:"followed"`
}

// ToggleFollow makes actorID follow targetID, or unfollow if it already
// does. The edge and both users' counters change in one transaction.
func (s *Store) ToggleFollow(ctx context.Context, actorID, targetID int64) (FollowResult, error) {
	if actorID <= 0 {
		return FollowResult{}, ErrUnauthorized
	}
	if targetID <= 0 {
		return FollowResult{}, fmt.Errorf("user id %d: %w", targetID, ErrInvalidArgument)
	}
	if actorID == targetID {
		return FollowResult{}, fmt.Errorf("cannot follow yourself: %w", ErrInvalidOperation)
	}

	followed, err := s.toggle(ctx, "follow", func(tx *db.Tx) (bool, error) {
		if err := requireUser(ctx, tx, actorID, ErrUnauthorized); err != nil {
			return false, err
		}
		if err := requireUser(ctx, tx, targetID, ErrNotFound); err != nil {
			return false, err
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)`,
			actorID, targetID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("look up follow: %w", err)
		}

		delta := 1
		if exists {
			delta = -1
			err = deleteEdge(ctx, tx, `DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, actorID, targetID)
		} else {
			err = insertEdge(ctx, tx,
				`INSERT INTO follows(follower_id, following_id, created_at) VALUES(?, ?, ?)`,
				actorID, targetID, s.now())
		}
		if err != nil {
			return false, err
		}
		if err := bumpFollowCounters(ctx, tx, actorID, targetID, delta); err != nil {
			return false, err
		}
		return !exists, nil
	})
	if err != nil {
		return FollowResult{}, err
	}
	return FollowResult{Followed: followed}, nil
}

// bumpFollowCounters updates the lower id first so two opposite toggles
// between the same pair lock rows in the same order.
func bumpFollowCounters(ctx context.Context, tx *db.Tx, actorID, targetID int64, delta int) error {
	bumps := [2]struct {
		column string
		userID int64
	}{{"following_count", actorID}, {"followers_count", targetID}}
	if targetID < actorID {
		bumps[0], bumps[1] = bumps[1], bumps[0]
	}
	for _, b := range bumps {
		if err := addToCounter(ctx, tx, b.column, b.userID, delta); err != nil {
			return err
		}
	}
	return nil
}

// IsFollowing reports whether followerID follows followingID.
func (s *Store) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?)`,
		followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("look up follow: %w", err)
	}
	return exists, nil
}
