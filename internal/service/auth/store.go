package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/lingualink/backend/internal/model/user"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// account is a user together with its stored credentials.
type account struct {
	user.User
	PasswordHash []byte
	Salt         []byte
}

// Store persists user accounts in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the account database at path. ":memory:" is
// accepted for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		mobile TEXT NOT NULL,
		password_hash BLOB NOT NULL,
		salt BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);`

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) create(ctx context.Context, acc account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, mobile, password_hash, salt, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.DisplayName, acc.Email, acc.Mobile, acc.PasswordHash, acc.Salt, acc.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) findByEmail(ctx context.Context, email string) (account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, mobile, password_hash, salt, created_at FROM users WHERE email = ?`, email)
	return scanAccount(row)
}

// FindByID returns the user with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, mobile, password_hash, salt, created_at FROM users WHERE id = ?`, id)
	acc, err := scanAccount(row)
	if err != nil {
		return user.User{}, err
	}
	return acc.User, nil
}

func scanAccount(row *sql.Row) (account, error) {
	var (
		acc       account
		createdAt time.Time
	)
	err := row.Scan(&acc.ID, &acc.DisplayName, &acc.Email, &acc.Mobile, &acc.PasswordHash, &acc.Salt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account{}, ErrUserNotFound
	}
	if err != nil {
		return account{}, fmt.Errorf("failed to read user: %w", err)
	}
	acc.CreatedAt = createdAt.UTC()
	return acc, nil
}
