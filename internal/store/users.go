package store

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
	"github.com/Moichehub/marketplace/internal/auth"
	"github.com/Moichehub/marketplace/internal/database"
	"github.com/Moichehub/marketplace/internal/models"
)

const userColumns = `id, username, email, password_hash, is_seller, is_active, created_at, updated_at`

type NewUser struct {
	Username string
	Email    string
	Password string
	IsSeller bool
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsSeller,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func CreateUser(ctx context.Context, db *sql.DB, hasher *auth.Hasher, in NewUser) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || utf8.RuneCountInString(username) > 150 {
		return nil, apperr.ErrInvalidInput.WithDetails("username must be 1 to 150 characters")
	}
	if in.Password == "" {
		return nil, apperr.ErrInvalidInput.WithDetails("password is required")
	}

	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (username, email, password_hash, is_seller, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(db.QueryRowContext(ctx, query, username, strings.TrimSpace(in.Email), hash, in.IsSeller))
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return nil, apperr.ErrUsernameTaken.WithDetails(username)
		}
		return nil, errors.Wrap(err, "create user")
	}

	return user, nil
}

func GetUser(ctx context.Context, db database.Querier, id int64) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}
	return user, nil
}

func GetUserByUsername(ctx context.Context, db database.Querier, username string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "get user by username")
	}
	return user, nil
}

// ListCustomers returns up to limit active non-seller accounts, oldest first.
func ListCustomers(ctx context.Context, db database.Querier, limit int) ([]models.User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE NOT is_seller AND is_active
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan customer")
		}
		users = append(users, *user)
	}
	return users, errors.Wrap(rows.Err(), "iterate customers")
}

// Authenticate returns the active user matching the credentials. Unknown
// usernames, wrong passwords and deactivated accounts are indistinguishable.
func Authenticate(ctx context.Context, db database.Querier, hasher *auth.Hasher, username, password string) (*models.User, error) {
	user, err := GetUserByUsername(ctx, db, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrInvalidLogin
		}
		return nil, err
	}

	if !user.IsActive || !hasher.Check(password, user.PasswordHash) {
		return nil, apperr.ErrInvalidLogin
	}

	return user, nil
}

func requireSeller(user *models.User) error {
	if user == nil || !user.IsSeller {
		return apperr.ErrSellerOnly
	}
	return nil
}

func requireCustomer(user *models.User) error {
	if user == nil {
		return apperr.ErrUserNotFound
	}
	if user.IsSeller {
		return apperr.ErrSellerForbidden
	}
	return nil
}
