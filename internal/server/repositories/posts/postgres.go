package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/dbx"
	"github.com/campusfeed/campusfeed/internal/server/models"
)

const postColumns = `id, author_id, content, array_to_string(hashtags, ','), array_to_string(liked_by, ','), created_at, expires_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	var tags, likes string
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &tags, &likes, &p.CreatedAt, &p.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Hashtags = dbx.SplitTextArray(tags)
	p.LikedBy = dbx.SplitTextArray(likes)
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {

	query :=
		`INSERT INTO posts (author_id, content, hashtags, created_at, expires_at)
		 VALUES ($1, $2, string_to_array($3, ','), $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		post.AuthorID, post.Content, dbx.JoinTextArray(post.Hashtags), post.CreatedAt, post.ExpiresAt).Scan(&post.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string, now time.Time) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE id = $1 AND expires_at > $2
		 `
	return scanPost(r.db.QueryRowContext(ctx, query, id, now))
}

func (r *PostgresRepository) ListVisible(ctx context.Context, viewerID string, tags []string, now time.Time) ([]models.PostView, error) {
	query :=
		`SELECT p.id, p.content, array_to_string(p.hashtags, ','), cardinality(p.liked_by),
		        $2 = ANY(p.liked_by), p.created_at, p.expires_at,
		        u.id, u.name, u.profile_pic
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.expires_at > $3
		   AND (p.hashtags && string_to_array($1, ',') OR p.author_id::text = $2)
		 ORDER BY p.created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, dbx.JoinTextArray(tags), viewerID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	views := []models.PostView{}
	for rows.Next() {
		var v models.PostView
		var postTags string
		if err := rows.Scan(&v.ID, &v.Content, &postTags, &v.LikesCount, &v.LikedByMe, &v.CreatedAt, &v.ExpiresAt,
			&v.Author.ID, &v.Author.Name, &v.Author.ProfilePic); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		v.Hashtags = dbx.SplitTextArray(postTags)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return views, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM posts
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ToggleLike(ctx context.Context, id, userID string, now time.Time) (*models.Post, error) {
	query :=
		`UPDATE posts
		 SET liked_by = CASE
		         WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2)
		         ELSE array_append(liked_by, $2)
		     END
		 WHERE id = $1 AND expires_at > $3
		 RETURNING ` + postColumns
	return scanPost(r.db.QueryRowContext(ctx, query, id, userID, now))
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM posts
		 WHERE expires_at <= $1
		 `
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
