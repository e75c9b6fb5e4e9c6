package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/doorbot/internal/access"
)

var _ access.Credentials = (*Store)(nil)

// UserRecord is an enrolled user as stored. The PIN hash is never exposed.
type UserRecord struct {
	Token     string    `json:"token"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Verify returns the user when pin matches the stored hash for token.
// Unknown tokens and wrong PINs both return (nil, nil).
func (s *Store) Verify(ctx context.Context, token, pin string) (*access.User, error) {
	token, err := NormalizeToken(token)
	if err != nil {
		return nil, nil
	}

	var (
		hash  []byte
		admin bool
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT pin_hash, admin FROM users WHERE token = ?`, token,
	).Scan(&hash, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, fmt.Errorf("verify: %w", err)
	}
	return &access.User{Token: token, Admin: admin}, nil
}

// UserExists reports whether token is enrolled.
func (s *Store) UserExists(ctx context.Context, token string) (bool, error) {
	token, err := NormalizeToken(token)
	if err != nil {
		return false, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE token = ?`, token,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

// AddUser enrolls token with pin. Returns ErrUserExists if token is
// already enrolled.
func (s *Store) AddUser(ctx context.Context, token, pin string, admin bool) error {
	token, err := NormalizeToken(token)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	hash, err := s.hash(pin)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}

	now := timestamp(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (token, pin_hash, admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, token, hash, admin, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("add user %s: %w", token, ErrUserExists)
		}
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// UpdatePIN replaces the PIN of token. Returns ErrUserNotFound if token is
// not enrolled.
func (s *Store) UpdatePIN(ctx context.Context, token, pin string) error {
	token, err := NormalizeToken(token)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	hash, err := s.hash(pin)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET pin_hash = ?, updated_at = ? WHERE token = ?`,
		hash, timestamp(s.now()), token,
	)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	return requireRow(res, "update pin", token)
}

// RemoveUser deletes token. Returns ErrUserNotFound if token is not
// enrolled. Audit records for the token are kept.
func (s *Store) RemoveUser(ctx context.Context, token string) error {
	token, err := NormalizeToken(token)
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	return requireRow(res, "remove user", token)
}

// GetUser returns the record for token, or ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, token string) (UserRecord, error) {
	token, err := NormalizeToken(token)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT token, admin, created_at, updated_at FROM users WHERE token = ?
	`, token)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, fmt.Errorf("get user %s: %w", token, ErrUserNotFound)
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every enrolled user ordered by token.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, admin, created_at, updated_at
		FROM users
		ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []UserRecord{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// maxPINBytes is the longest input bcrypt accepts.
const maxPINBytes = 72

func (s *Store) hash(pin string) ([]byte, error) {
	if pin == "" || len(pin) > maxPINBytes {
		return nil, ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return hash, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (UserRecord, error) {
	var (
		u                  UserRecord
		created, updated string
	)
	if err := sc.Scan(&u.Token, &u.Admin, &created, &updated); err != nil {
		return UserRecord{}, err
	}

	var err error
	if u.CreatedAt, err = parseTimestamp(created); err != nil {
		return UserRecord{}, err
	}
	if u.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return UserRecord{}, err
	}
	return u, nil
}

func requireRow(res sql.Result, op, token string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, token, ErrUserNotFound)
	}
	return nil
}
