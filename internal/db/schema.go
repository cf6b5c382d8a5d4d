package db

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		posts_count INTEGER NOT NULL DEFAULT 0 CHECK(posts_count >= 0),
		total_likes INTEGER NOT NULL DEFAULT 0 CHECK(total_likes >= 0),
		followers_count INTEGER NOT NULL DEFAULT 0 CHECK(followers_count >= 0),
		following_count INTEGER NOT NULL DEFAULT 0 CHECK(following_count >= 0),
		countries_visited INTEGER NOT NULL DEFAULT 0 CHECK(countries_visited >= 0),
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS posts(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		image_url TEXT NOT NULL,
		location TEXT,
		lat REAL,
		lng REAL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS follows(
		follower_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		PRIMARY KEY(follower_id, following_id),
		CHECK(follower_id <> following_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id);`,
	`CREATE TABLE IF NOT EXISTS post_likes(
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		PRIMARY KEY(user_id, post_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_post_likes_post ON post_likes(post_id);`,
	`CREATE TABLE IF NOT EXISTS categories(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);`,
	`INSERT OR IGNORE INTO categories(id, name) VALUES
		(1,'Adventure'),(2,'Culture'),(3,'Food'),(4,'Nature'),(5,'Road Trip');`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		posts_count BIGINT NOT NULL DEFAULT 0 CHECK(posts_count >= 0),
		total_likes BIGINT NOT NULL DEFAULT 0 CHECK(total_likes >= 0),
		followers_count BIGINT NOT NULL DEFAULT 0 CHECK(followers_count >= 0),
		following_count BIGINT NOT NULL DEFAULT 0 CHECK(following_count >= 0),
		countries_visited BIGINT NOT NULL DEFAULT 0 CHECK(countries_visited >= 0),
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS posts(
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		image_url TEXT NOT NULL,
		location TEXT,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS follows(
		follower_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY(follower_id, following_id),
		CHECK(follower_id <> following_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following_id);`,
	`CREATE TABLE IF NOT EXISTS post_likes(
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY(user_id, post_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_post_likes_post ON post_likes(post_id);`,
	`CREATE TABLE IF NOT EXISTS categories(
		id BIGINT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	);`,
	`INSERT INTO categories(id, name) VALUES
		(1,'Adventure'),(2,'Culture'),(3,'Food'),(4,'Nature'),(5,'Road Trip')
		ON CONFLICT DO NOTHING;`,
}

// Migrate creates the tables, indexes and seed rows. Every statement is
// idempotent.
func Migrate(ctx context.Context, c *Conn) error {
	stmts := sqliteSchema
	if c.dialect == Postgres {
		stmts = postgresSchema
	}
	for i, s := range stmts {
		if _, err := c.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
