package social

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func TestReconcileRepairsDrift(t *testing.T) {
	s := newTestStore(t)
	lb := newRecordingCache()
	s.cache = lb
	ctx := context.Background()
	a, b, c := mustUser(t, s, "anu"), mustUser(t, s, "bat"), mustUser(t, s, "saraa")
	if _, err := s.ToggleFollow(ctx, a, b); err != nil {
		t.Fatal(err)
	}
	pb := mustPost(t, s, b, "Архангай")
	mustPost(t, s, b, "Булган")
	if _, err := s.ToggleLike(ctx, a, strconv.FormatInt(pb, 10)); err != nil {
		t.Fatal(err)
	}
	want := map[int64]counters{a: stored(t, s, a), b: stored(t, s, b), c: stored(t, s, c)}

	// Drift two users behind the store's back.
	if _, err := s.conn.Exec(ctx, `UPDATE users SET followers_count = 9, total_likes = 0, countries_visited = 5 WHERE id = ?`, b); err != nil {
		t.Fatal(err)
	}
	if _, err := s.conn.Exec(ctx, `UPDATE users SET following_count = 0, posts_count = 3 WHERE id = ?`, a); err != nil {
		t.Fatal(err)
	}
	invalidatedBefore := lb.invalidated

	report, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Scanned != 3 || report.Corrected != 2 {
		t.Errorf("report = %+v, want scanned 3 corrected 2", report)
	}
	for id, w := range want {
		if got := stored(t, s, id); got != w {
			t.Errorf("user %d counters = %+v, want %+v", id, got, w)
		}
	}
	if lb.invalidated != invalidatedBefore+1 {
		t.Errorf("corrections did not invalidate the leaderboard cache")
	}

	again, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Corrected != 0 {
		t.Errorf("second run corrected %d users, want 0", again.Corrected)
	}
}

func TestReconcileAfterCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := mustUser(t, s, "anu"), mustUser(t, s, "bat")
	if _, err := s.ToggleFollow(ctx, a, b); err != nil {
		t.Fatal(err)
	}
	if _, err := s.conn.Exec(ctx, `DELETE FROM users WHERE id = ?`, a); err != nil {
		t.Fatal(err)
	}
	if got := stored(t, s, b).followers; got != 1 {
		t.Fatalf("precondition: followers(b) = %d, want stale 1", got)
	}

	report, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Corrected != 1 || stored(t, s, b).followers != 0 {
		t.Errorf("report = %+v followers(b) = %d", report, stored(t, s, b).followers)
	}
}

func TestRunReconcilerStopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	a := mustUser(t, s, "anu")
	if _, err := s.conn.Exec(context.Background(), `UPDATE users SET posts_count = 4 WHERE id = ?`, a); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunReconciler(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for stored(t, s, a).posts != 0 {
		select {
		case <-deadline:
			t.Fatal("reconciler never repaired the drift")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunReconciler did not return after cancel")
	}
}

func TestRunReconcilerDisabled(t *testing.T) {
	s := newTestStore(t)
	done := make(chan struct{})
	go func() {
		s.RunReconciler(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should return immediately")
	}
}
