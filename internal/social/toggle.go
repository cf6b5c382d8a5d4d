package social

import (
	"context"
	"errors"
	"fmt"

	"travelog/internal/db"
	"travelog/internal/logging"
	"travelog/internal/metrics"
)

// maxToggleAttempts bounds how often a toggle that lost a race is re-run.
const maxToggleAttempts = 3

// errRaced marks a toggle whose edge changed between lookup and write.
var errRaced = errors.New("edge changed concurrently")

// toggle runs step in a transaction and re-runs it from the lookup when it
// loses a race on its edge. A re-run sees the winner's row and resolves to
// the opposite branch.
func (s *Store) toggle(ctx context.Context, kind string, step func(tx *db.Tx) (bool, error)) (bool, error) {
	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		var on bool
		err := s.conn.WithTx(ctx, func(tx *db.Tx) error {
			var err error
			on, err = step(tx)
			return err
		})
		if err == nil {
			metrics.RecordToggle(kind, on)
			s.invalidateLeaderboard(ctx)
			return on, nil
		}
		if !raced(err) {
			return false, err
		}
		metrics.ToggleRetries.WithLabelValues(kind).Inc()
		logging.Ctx(ctx).Debug().Err(err).Str("kind", kind).Int("attempt", attempt).Msg("toggle raced, retrying")
	}
	metrics.ToggleContention.WithLabelValues(kind).Inc()
	return false, fmt.Errorf("%s toggle: %w", kind, ErrContention)
}

func raced(err error) bool {
	return errors.Is(err, errRaced) || db.IsUniqueViolation(err) || db.IsTransient(err)
}

// deleteEdge removes one edge row and reports errRaced if another
// transaction already removed it.
func deleteEdge(ctx context.Context, tx *db.Tx, query string, args ...any) error {
	res, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	if n == 0 {
		return errRaced
	}
	return nil
}

// insertEdge inserts one edge row and reports errRaced if another
// transaction inserted it first.
func insertEdge(ctx context.Context, tx *db.Tx, query string, args ...any) error {
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if db.IsUniqueViolation(err) {
			return errRaced
		}
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}
