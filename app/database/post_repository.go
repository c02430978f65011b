package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ PostRepository = (*SQLitePostRepository)(nil)

// SQLitePostRepository handles database operations for archived posts
type SQLitePostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *SQLitePostRepository {
	return &SQLitePostRepository{db: db}
}

// UpsertPost stores an observed post, keeping the original first-seen
// timestamp on conflict.
func (r *SQLitePostRepository) UpsertPost(post ArchivedPost) error {
	_, err := r.db.Exec(`
		INSERT INTO posts (id, title, author, preview, thread_url, published_at, triggered, matched_on, first_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			preview = excluded.preview,
			thread_url = excluded.thread_url,
			published_at = excluded.published_at,
			triggered = excluded.triggered,
			matched_on = excluded.matched_on
	`, post.ID, post.Title, post.Author, post.Preview, post.ThreadURL,
		post.PublishedAt, post.Triggered, post.MatchedOn, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// GetRecentPosts returns the most recently observed posts, newest first.
func (r *SQLitePostRepository) GetRecentPosts(limit int) ([]ArchivedPost, error) {
	rows, err := r.db.Query(`
		SELECT id, title, author, preview, thread_url, published_at, triggered, matched_on, first_seen_at
		FROM posts
		ORDER BY first_seen_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}
	defer rows.Close()

	var posts []ArchivedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// GetPost returns the archived post with the given ID, or nil.
func (r *SQLitePostRepository) GetPost(id string) (*ArchivedPost, error) {
	row := r.db.QueryRow(`
		SELECT id, title, author, preview, thread_url, published_at, triggered, matched_on, first_seen_at
		FROM posts
		WHERE id = ?
	`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

// GetPostCount returns the total number of archived posts.
func (r *SQLitePostRepository) GetPostCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (ArchivedPost, error) {
	var post ArchivedPost
	var publishedAt sql.NullTime

	err := row.Scan(&post.ID, &post.Title, &post.Author, &post.Preview,
		&post.ThreadURL, &publishedAt, &post.Triggered, &post.MatchedOn, &post.FirstSeenAt)
	if err != nil {
		return ArchivedPost{}, err
	}

	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}

	return post, nil
}
