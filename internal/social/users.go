package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"travelog/internal/db"
	"travelog/internal/models"
)

// NewUser is a registration. PasswordHash is already hashed.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Name         string
}

// CreateUser inserts a user with all counters at zero.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	u := &models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: in.PasswordHash,
		Name:         strings.TrimSpace(in.Name),
		CreatedAt:    s.now(),
	}
	err := s.conn.QueryRow(ctx,
		`INSERT INTO users(email, username, password_hash, name, created_at) VALUES(?, ?, ?, ?, ?) RETURNING id`,
		u.Email, u.Username, u.PasswordHash, u.Name, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("username or email already taken: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByEmail returns the user including its password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UserByID returns the full user row.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// Profile returns the public view of userID. viewerID 0 is anonymous.
func (s *Store) Profile(ctx context.Context, userID, viewerID int64) (*models.Profile, error) {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Email = ""
	p := &models.Profile{User: *u}
	if viewerID > 0 && viewerID != userID {
		following, err := s.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
		p.IsFollowing = &following
	}
	return p, nil
}

const publicUserColumns = `id, username, name, bio, avatar_url,
	posts_count, total_likes, followers_count, following_count, countries_visited, created_at`

// ListUsers is the community listing, newest members first.
func (s *Store) ListUsers(ctx context.Context, page Page) ([]models.User, error) {
	page = page.normalized()
	rows, err := s.conn.Query(ctx, `SELECT `+publicUserColumns+` FROM users
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Bio, &u.AvatarURL,
			&u.PostsCount, &u.TotalLikes, &u.FollowersCount, &u.FollowingCount, &u.CountriesVisited, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Followers lists who follows userID, most recent first.
func (s *Store) Followers(ctx context.Context, userID int64, page Page) ([]models.UserSummary, error) {
	return s.edgeUsers(ctx, userID, page, `SELECT u.id, u.username, u.name, u.avatar_url
		FROM follows f JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = ?
		ORDER BY f.created_at DESC, u.id LIMIT ? OFFSET ?`)
}

// Following lists whom userID follows, most recent first.
func (s *Store) Following(ctx context.Context, userID int64, page Page) ([]models.UserSummary, error) {
	return s.edgeUsers(ctx, userID, page, `SELECT u.id, u.username, u.name, u.avatar_url
		FROM follows f JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = ?
		ORDER BY f.created_at DESC, u.id LIMIT ? OFFSET ?`)
}

func (s *Store) edgeUsers(ctx context.Context, userID int64, page Page, query string) ([]models.UserSummary, error) {
	if err := requireUser(ctx, s.conn, userID, ErrNotFound); err != nil {
		return nil, err
	}
	page = page.normalized()
	rows, err := s.conn.Query(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list follows of user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list follows of user %d: %w", userID, err)
	}
	return out, nil
}
