package social

import (
	"context"
	"fmt"
	"time"

	"travelog/internal/db"
	"travelog/internal/logging"
	"travelog/internal/metrics"
	"travelog/internal/regions"
)

// ReconcileReport summarizes one Reconcile run.
type ReconcileReport struct {
	Scanned   int `json:"scanned"`
	Corrected int `json:"corrected"`
}

type counters struct {
	posts, likes, followers, following, visited int64
}

// maxReconcileAttempts bounds reruns after a serialization failure.
const maxReconcileAttempts = 3

// Reconcile recomputes every user's counters from the follow, like and post
// rows and rewrites the users whose stored values drifted.
//
// The recompute and the rewrite share one snapshot. A toggle or post that
// commits a change to a drifted user in between makes the run fail with a
// serialization error instead of writing back pre-commit values; the run is
// then repeated.
func (s *Store) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var (
		report ReconcileReport
		err    error
	)
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		report, err = s.reconcileOnce(ctx)
		if err == nil || !db.IsTransient(err) {
			break
		}
		logging.Ctx(ctx).Debug().Err(err).Int("attempt", attempt).Msg("reconcile raced a write, retrying")
	}
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return ReconcileReport{}, err
	}

	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	metrics.ReconcileCorrections.Add(float64(report.Corrected))
	if report.Corrected > 0 {
		s.invalidateLeaderboard(ctx)
	}
	return report, nil
}

func (s *Store) reconcileOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	err := s.conn.WithSnapshotTx(ctx, func(tx *db.Tx) error {
		stored, err := loadCounters(ctx, tx)
		if err != nil {
			return err
		}
		want, err := expectedCounters(ctx, tx, stored)
		if err != nil {
			return err
		}

		report = ReconcileReport{Scanned: len(stored)}
		for id, have := range stored {
			exp := want[id]
			if have == exp {
				continue
			}
			_, err := tx.Exec(ctx, `UPDATE users SET posts_count = ?, total_likes = ?, followers_count = ?,
				following_count = ?, countries_visited = ? WHERE id = ?`,
				exp.posts, exp.likes, exp.followers, exp.following, exp.visited, id)
			if err != nil {
				return fmt.Errorf("rewrite counters of user %d: %w", id, err)
			}
			logging.Ctx(ctx).Info().Int64("user_id", id).
				Interface("stored", have.fields()).Interface("actual", exp.fields()).
				Msg("corrected drifted counters")
			report.Corrected++
		}
		return nil
	})
	return report, err
}

func (c counters) fields() map[string]int64 {
	return map[string]int64{
		"postsCount":       c.posts,
		"totalLikes":       c.likes,
		"followersCount":   c.followers,
		"followingCount":   c.following,
		"countriesVisited": c.visited,
	}
}

func loadCounters(ctx context.Context, tx *db.Tx) (map[int64]counters, error) {
	rows, err := tx.Query(ctx, `SELECT id, posts_count, total_likes, followers_count, following_count, countries_visited FROM users`)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]counters)
	for rows.Next() {
		var (
			id int64
			c  counters
		)
		if err := rows.Scan(&id, &c.posts, &c.likes, &c.followers, &c.following, &c.visited); err != nil {
			return nil, fmt.Errorf("scan counters: %w", err)
		}
		out[id] = c
	}
	return out, rows.Err()
}

// expectedCounters derives each user's counters from the canonical rows.
// Every query is read to completion before the next one starts.
func expectedCounters(ctx context.Context, tx *db.Tx, users map[int64]counters) (map[int64]counters, error) {
	want := make(map[int64]counters, len(users))
	for id := range users {
		want[id] = counters{}
	}

	apply := func(query string, set func(c *counters, n int64)) error {
		counts, err := groupCounts(ctx, tx, query)
		if err != nil {
			return err
		}
		for id, n := range counts {
			c, ok := want[id]
			if !ok {
				continue
			}
			set(&c, n)
			want[id] = c
		}
		return nil
	}

	if err := apply(`SELECT author_id, COUNT(*) FROM posts GROUP BY author_id`,
		func(c *counters, n int64) { c.posts = n }); err != nil {
		return nil, err
	}
	if err := apply(`SELECT p.author_id, COUNT(*) FROM post_likes l JOIN posts p ON p.id = l.post_id GROUP BY p.author_id`,
		func(c *counters, n int64) { c.likes = n }); err != nil {
		return nil, err
	}
	if err := apply(`SELECT following_id, COUNT(*) FROM follows GROUP BY following_id`,
		func(c *counters, n int64) { c.followers = n }); err != nil {
		return nil, err
	}
	if err := apply(`SELECT follower_id, COUNT(*) FROM follows GROUP BY follower_id`,
		func(c *counters, n int64) { c.following = n }); err != nil {
		return nil, err
	}

	locations, err := authorLocations(ctx, tx)
	if err != nil {
		return nil, err
	}
	for id, locs := range locations {
		if c, ok := want[id]; ok {
			c.visited = int64(regions.CountVisited(locs))
			want[id] = c
		}
	}
	return want, nil
}

func groupCounts(ctx context.Context, tx *db.Tx, query string) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

func authorLocations(ctx context.Context, tx *db.Tx) (map[int64][]string, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT author_id, location FROM posts WHERE location IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list post locations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			id  int64
			loc string
		)
		if err := rows.Scan(&id, &loc); err != nil {
			return nil, fmt.Errorf("scan post location: %w", err)
		}
		out[id] = append(out[id], loc)
	}
	return out, rows.Err()
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (s *Store) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logging.WithComponent("reconcile")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Reconcile(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("counter reconciliation failed")
				}
				continue
			}
			log.Info().Int("scanned", report.Scanned).Int("corrected", report.Corrected).Msg("counter reconciliation finished")
		}
	}
}
