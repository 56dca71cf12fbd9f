package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/safar/go-shop-store/internal/database"
	"github.com/safar/go-shop-store/internal/models"
)

type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser registers a new account. Sellers get their shop created in the
// same transaction, so a seller row never exists without its shop.
func CreateUser(ctx context.Context, db *sql.DB, req CreateUserRequest) (*models.User, error) {
	if req.Role != models.RoleBuyer && req.Role != models.RoleSeller {
		return nil, database.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{}

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		query := `
			INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, username, email, password_hash, role, created_at, updated_at`

		err := tx.QueryRowContext(ctx, query, req.Username, req.Email, string(hash), req.Role).Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return database.ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}

		if user.Role == models.RoleSeller {
			if _, err := ensureShop(ctx, tx, fmt.Sprintf("%s's Shop", user.Username), user.ID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and wrong
// passwords return the same error so callers cannot probe which usernames exist.
func Authenticate(ctx context.Context, db *sql.DB, username, password string) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, username, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE username = $1`

	err := db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, database.ErrInvalidCredentials
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, username, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}
