package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/agrilinka/auth-service/core"
	"github.com/agrilinka/auth-service/ports"
)

// PostgresDirectory stores AgriLinka users in Postgres.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates the directory and ensures the users table
// exists.
func NewPostgresDirectory(db *sql.DB) (*PostgresDirectory, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	d := &PostgresDirectory{db: db}
	if err := d.ensureSchema(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *PostgresDirectory) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	wallet_address TEXT UNIQUE,
	email TEXT UNIQUE,
	password_hash TEXT,
	name TEXT,
	role TEXT NOT NULL DEFAULT 'farmer',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := d.db.Exec(q); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

const selectColumns = `id, COALESCE(wallet_address, ''), COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(name, ''), role, created_at, updated_at`

func (d *PostgresDirectory) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var role string
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	return u, nil
}

func (d *PostgresDirectory) GetByWallet(ctx context.Context, walletAddress string) (core.User, error) {
	q := `SELECT ` + selectColumns + ` FROM users WHERE wallet_address = $1`
	return d.scanUser(d.db.QueryRowContext(ctx, q, walletAddress))
}

func (d *PostgresDirectory) GetByEmail(ctx context.Context, email string) (core.User, error) {
	q := `SELECT ` + selectColumns + ` FROM users WHERE email = $1`
	return d.scanUser(d.db.QueryRowContext(ctx, q, email))
}

func (d *PostgresDirectory) GetByID(ctx context.Context, id string) (core.User, error) {
	q := `SELECT ` + selectColumns + ` FROM users WHERE id = $1`
	return d.scanUser(d.db.QueryRowContext(ctx, q, id))
}

// Create inserts an email/password user. A unique violation on email maps
// to core.ErrEmailTaken.
func (d *PostgresDirectory) Create(ctx context.Context, user core.User) (core.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const q = `
INSERT INTO users (id, wallet_address, email, password_hash, name, role, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $7)`
	_, err := d.db.ExecContext(ctx, q, user.ID, user.WalletAddress, user.Email, user.PasswordHash, user.Name, string(user.Role), now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// CreateWalletUser provisions a user for a wallet address. ON CONFLICT DO
// NOTHING plus a re-select makes concurrent first logins converge on one
// row: whichever insert wins, every caller reads back the same user.
func (d *PostgresDirectory) CreateWalletUser(ctx context.Context, user core.User) (core.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	const q = `
INSERT INTO users (id, wallet_address, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (wallet_address) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, q, user.ID, user.WalletAddress, string(user.Role), now); err != nil {
		return core.User{}, fmt.Errorf("insert wallet user: %w", err)
	}

	return d.GetByWallet(ctx, user.WalletAddress)
}

var _ ports.UserDirectory = (*PostgresDirectory)(nil)
