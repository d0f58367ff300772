package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"driftchat/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SearchUsers(ctx context.Context, username string) ([]*models.User, error)
}

type PostgresUserRepo struct {
	pool Querier
}

func NewUserRepo(pool Querier) UserRepository {
	return &PostgresUserRepo{
		pool: pool,
	}
}

const userColumns = `id, username, password_hash, display_name, bio, avatar_url, created_at, updated_at`

func (r *PostgresUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (id, username, password_hash) VALUES ($1,$2,$3) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Password_Hash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Password_Hash,
		&user.DisplayName,
		&user.Bio,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return user, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	user := &models.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Password_Hash,
		&user.DisplayName,
		&user.Bio,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

func (r *PostgresUserRepo) SearchUsers(ctx context.Context, username string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username
		LIMIT 50`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Password_Hash,
			&user.DisplayName,
			&user.Bio,
			&user.AvatarURL,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
