package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"travelog/internal/db"
	"travelog/internal/logging"
	"travelog/internal/metrics"
	"travelog/internal/models"
	"travelog/internal/regions"
	"travelog/internal/validation"
)

// PostInput is the body of a new post.
type PostInput struct {
	Title    string    `json:"title" validate:"required"`
	Excerpt  string    `json:"excerpt" validate:"required"`
	Content  string    `json:"content" validate:"required"`
	Category string    `json:"category" validate:"required"`
	ImageURL string    `json:"imageUrl" validate:"required"`
	Location *Location `json:"location,omitempty"`
}

func (in PostInput) trimmed() PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Location != nil {
		loc := *in.Location
		loc.Name = strings.TrimSpace(loc.Name)
		in.Location = &loc
	}
	return in
}

// CreatePost stores a post and recomputes its author's postsCount and
// countriesVisited from the post rows. A failed countriesVisited recompute
// is logged and skipped; the post and postsCount still commit.
func (s *Store) CreatePost(ctx context.Context, authorID int64, in PostInput) (*models.Post, error) {
	if authorID <= 0 {
		return nil, ErrUnauthorized
	}
	in = in.trimmed()
	if verr := validation.ValidateStruct(&in); verr != nil {
		return nil, fmt.Errorf("missing information: %s: %w", verr.Error(), ErrInvalidArgument)
	}

	post := &models.Post{
		AuthorID:  authorID,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Category:  in.Category,
		ImageURL:  in.ImageURL,
		CreatedAt: s.now(),
	}
	if !in.Location.IsZero() {
		if in.Location.Name != "" {
			name := in.Location.Name
			post.Location = &name
		}
		post.Lat, post.Lng = in.Location.Lat, in.Location.Lng
	}

	err := s.conn.WithTx(ctx, func(tx *db.Tx) error {
		// Locking the author row serializes concurrent posts by one author, so
		// each COUNT below sees every post committed before it.
		err := tx.QueryRow(ctx, `SELECT username FROM users WHERE id = ?`+tx.Dialect().ForUpdate(), authorID).Scan(&post.Author)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("author %d: %w", authorID, ErrUnauthorized)
			}
			return fmt.Errorf("look up author %d: %w", authorID, err)
		}

		err = tx.QueryRow(ctx, `INSERT INTO posts(author_id, title, excerpt, content, category, image_url, location, lat, lng, created_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			authorID, post.Title, post.Excerpt, post.Content, post.Category, post.ImageURL,
			nullString(post.Location), nullFloat(post.Lat), nullFloat(post.Lng), post.CreatedAt,
		).Scan(&post.ID)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}

		var postsCount int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&postsCount); err != nil {
			return fmt.Errorf("count posts of user %d: %w", authorID, err)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET posts_count = ? WHERE id = ?`, postsCount, authorID); err != nil {
			return fmt.Errorf("update posts_count of user %d: %w", authorID, err)
		}

		err = tx.Savepoint(ctx, "countries_visited", func() error {
			n, err := s.visitedRegions(ctx, tx, authorID)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `UPDATE users SET countries_visited = ? WHERE id = ?`, n, authorID)
			return err
		})
		if errors.Is(err, db.ErrSavepointAborted) {
			return err
		}
		if err != nil {
			metrics.RegionRecomputeFailures.Inc()
			logging.Ctx(ctx).Warn().Err(err).Int64("user_id", authorID).Int64("post_id", post.ID).
				Msg("countriesVisited recompute failed, keeping previous value")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PostsCreated.Inc()
	s.invalidateLeaderboard(ctx)
	return post, nil
}

// countVisitedRegions counts distinct reference regions among the user's
// post locations.
func countVisitedRegions(ctx context.Context, q db.Querier, userID int64) (int64, error) {
	rows, err := q.Query(ctx, `SELECT DISTINCT location FROM posts WHERE author_id = ? AND location IS NOT NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("list locations of user %d: %w", userID, err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return 0, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list locations of user %d: %w", userID, err)
	}
	return int64(regions.CountVisited(locations)), nil
}

// PostFilter selects posts for ListPosts. AuthorID 0 means all authors;
// ViewerID 0 means anonymous.
type PostFilter struct {
	AuthorID int64
	ViewerID int64
	Page     Page
}

const postColumns = `p.id, p.author_id, u.username, p.title, p.excerpt, p.content, p.category, p.image_url,
	p.location, p.lat, p.lng, p.created_at,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	EXISTS(SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?)`

func scanPost(row scanner) (*models.Post, error) {
	var (
		p        models.Post
		location sql.NullString
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.AuthorID, &p.Author, &p.Title, &p.Excerpt, &p.Content, &p.Category, &p.ImageURL,
		&location, &lat, &lng, &p.CreatedAt, &p.Likes, &p.LikedByMe)
	if err != nil {
		return nil, err
	}
	if location.Valid {
		p.Location = &location.String
	}
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lng.Valid {
		p.Lng = &lng.Float64
	}
	return &p, nil
}

// GetPost returns one post with its live like count.
func (s *Store) GetPost(ctx context.Context, postID, viewerID int64) (*models.Post, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+postColumns+`
		FROM posts p JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`, viewerID, postID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", postID, err)
	}
	return p, nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]models.Post, error) {
	page := f.Page.normalized()
	query := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.author_id`
	args := []any{f.ViewerID}
	if f.AuthorID > 0 {
		query += ` WHERE p.author_id = ?`
		args = append(args, f.AuthorID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Categories returns the suggested post categories.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
