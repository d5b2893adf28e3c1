package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"hixa-chat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	EnsureSystemUser(ctx context.Context) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB

	// cached system identity, resolved once
	system *models.User
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, role, is_active, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// EnsureSystemUser creates the reserved system identity if it does not exist
// and caches it for subsequent calls.
func (r *UserRepo) EnsureSystemUser(ctx context.Context) (models.User, error) {
	if r.system != nil {
		return *r.system, nil
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO users (username, role) VALUES ($1, 'system')
        ON CONFLICT (username) DO NOTHING`, models.SystemUsername); err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT id, username, role, is_active, created_at FROM users WHERE username=$1`, models.SystemUsername); err != nil {
		return models.User{}, err
	}
	r.system = &user
	return user, nil
}
