//go:build integration

package social

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"travelog/internal/db"
	"travelog/internal/testinfra"
)

func TestPostgresCounters(t *testing.T) {
	url := testinfra.StartPostgres(t)

	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			conn, err := db.Open(ctx, driver, url)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			t.Cleanup(func() { conn.Close() })
			if err := db.Migrate(ctx, conn); err != nil {
				t.Fatalf("Migrate: %v", err)
			}
			if _, err := conn.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`); err != nil {
				t.Fatal(err)
			}
			s := NewStore(conn, nil)

			a, b, c := mustUser(t, s, "anu"), mustUser(t, s, "bat"), mustUser(t, s, "saraa")
			if _, err := s.CreateUser(ctx, NewUser{Username: "anu", Email: "x@example.com", PasswordHash: "x"}); !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("duplicate username: %v, want ErrAlreadyExists", err)
			}

			postID := mustPost(t, s, a, "Хөвсгөл")
			mustPost(t, s, a, "Хөвсгөл")

			var wg sync.WaitGroup
			var mu sync.Mutex
			var errs []error
			record := func(err error) {
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
			for i := 0; i < 6; i++ {
				wg.Add(3)
				go func() { defer wg.Done(); _, err := s.ToggleFollow(ctx, b, a); record(err) }()
				go func() { defer wg.Done(); _, err := s.ToggleFollow(ctx, a, c); record(err) }()
				go func() {
					defer wg.Done()
					_, err := s.ToggleLike(ctx, c, strconv.FormatInt(postID, 10))
					record(err)
				}()
			}
			wg.Wait()
			for _, err := range errs {
				if !errors.Is(err, ErrContention) {
					t.Fatalf("unexpected toggle error: %v", err)
				}
			}
			assertGraphConsistent(t, s, a, b, c)

			if got := stored(t, s, a); got.posts != 2 || got.visited != 1 {
				t.Errorf("author counters = %+v, want posts 2 visited 1", got)
			}

			if _, err := conn.Exec(ctx, `UPDATE users SET total_likes = 40 WHERE id = ?`, a); err != nil {
				t.Fatal(err)
			}
			report, err := s.Reconcile(ctx)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if report.Corrected != 1 {
				t.Errorf("corrected = %d, want 1", report.Corrected)
			}
			assertGraphConsistent(t, s, a, b, c)
		})
	}
}

func TestPostgresConcurrentPostsAndReconcile(t *testing.T) {
	url := testinfra.StartPostgres(t)
	ctx := context.Background()
	conn, err := db.Open(ctx, "pgx", url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	s := NewStore(conn, nil)
	a, b := mustUser(t, s, "anu"), mustUser(t, s, "bat")

	places := []string{"Хөвсгөл", "Увс", "Ховд", "Хөвсгөл", "", "Завхан", "Увс", ""}
	var wg sync.WaitGroup
	errs := make(chan error, len(places)+8)
	for _, place := range places {
		wg.Add(1)
		go func(place string) {
			defer wg.Done()
			var loc *Location
			if place != "" {
				loc = &Location{Name: place}
			}
			if _, err := s.CreatePost(ctx, a, validPost(loc)); err != nil {
				errs <- err
			}
		}(place)
	}
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.ToggleFollow(ctx, b, a); err != nil && !errors.Is(err, ErrContention) {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Reconcile(ctx); err != nil && !db.IsTransient(err) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write failed: %v", err)
	}

	got := stored(t, s, a)
	if got.posts != int64(len(places)) {
		t.Errorf("posts_count = %d, want %d", got.posts, len(places))
	}
	if got.visited != 4 {
		t.Errorf("countries_visited = %d, want 4", got.visited)
	}
	assertGraphConsistent(t, s, a, b)

	report, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Corrected != 0 {
		t.Errorf("a quiet reconcile corrected %d users; concurrent writers left drift", report.Corrected)
	}
}
