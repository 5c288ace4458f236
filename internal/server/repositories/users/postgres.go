package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/dbx"
	"github.com/campusfeed/campusfeed/internal/server/models"
)

const userColumns = `id, username, email, password_hash, is_verified, is_profile_complete,
		name, bio, profile_pic, array_to_string(hashtags, ','), device_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var tags string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &u.IsProfileComplete,
		&u.Name, &u.Bio, &u.ProfilePic, &tags, &u.DeviceToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if constraint, ok := dbx.IsUniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrConflict, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Hashtags = dbx.SplitTextArray(tags)
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.IsUniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrConflict, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.Hashtags == nil {
		user.Hashtags = []string{}
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Taken(ctx context.Context, username, email string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
		 `
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&taken); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return taken, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 `
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, email string) (*models.User, error) {
	query :=
		`UPDATE users SET is_verified = TRUE, updated_at = now()
		 WHERE email = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) CompleteProfile(ctx context.Context, id string, p models.ProfileFields) (*models.User, error) {
	query :=
		`UPDATE users SET name = $2, bio = $3, hashtags = string_to_array($4, ','),
		 profile_pic = $5, is_profile_complete = TRUE, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, p.Name, p.Bio, dbx.JoinTextArray(p.Hashtags), p.ProfilePic))
}

// update sets a single column. column is always a constant from this file.
func (r *PostgresRepository) update(ctx context.Context, id, column string, value any) (*models.User, error) {
	query :=
		`UPDATE users SET ` + column + ` = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, value))
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	return r.update(ctx, id, "name", name)
}

func (r *PostgresRepository) UpdateBio(ctx context.Context, id, bio string) (*models.User, error) {
	return r.update(ctx, id, "bio", bio)
}

func (r *PostgresRepository) UpdateUsername(ctx context.Context, id, username string) (*models.User, error) {
	return r.update(ctx, id, "username", username)
}

func (r *PostgresRepository) UpdateProfilePic(ctx context.Context, id, url string) (*models.User, error) {
	return r.update(ctx, id, "profile_pic", url)
}

func (r *PostgresRepository) UpdateDeviceToken(ctx context.Context, id, token string) (*models.User, error) {
	return r.update(ctx, id, "device_token", token)
}

func (r *PostgresRepository) UpdateHashtags(ctx context.Context, id string, hashtags []string) (*models.User, error) {
	query :=
		`UPDATE users SET hashtags = string_to_array($2, ','), updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, dbx.JoinTextArray(hashtags)))
}

func (r *PostgresRepository) InterestedIn(ctx context.Context, tags []string) ([]string, error) {
	query :=
		`SELECT id FROM users
		 WHERE hashtags && string_to_array($1, ',')
		 `
	rows, err := r.db.QueryContext(ctx, query, dbx.JoinTextArray(tags))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
