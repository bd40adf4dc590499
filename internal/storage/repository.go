package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wealthplanner/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width UTC so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so the schema is in place.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewFromDB(db), nil
}

// NewFromDB wraps an already opened database. The schema must exist.
func NewFromDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func parseStamp(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

const profileColumns = `id, phone, name, income_cents, currency, theme, rule_needs, rule_wants, rule_savings, pin_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (core.Profile, error) {
	var p core.Profile
	var theme, created, updated string
	err := row.Scan(&p.ID, &p.Phone, &p.Name, &p.Income.Cents, &p.Currency, &theme,
		&p.Rules.Needs, &p.Rules.Wants, &p.Rules.Savings, &p.PINHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ErrNotFound
	}
	if err != nil {
		return core.Profile{}, err
	}
	p.Theme = core.Theme(theme)
	if p.CreatedAt, err = parseStamp(created); err != nil {
		return core.Profile{}, fmt.Errorf("profile %d created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseStamp(updated); err != nil {
		return core.Profile{}, fmt.Errorf("profile %d updated_at: %w", p.ID, err)
	}
	return p, nil
}

// GetProfile loads a user by id.
func (r *SQLiteRepository) GetProfile(ctx context.Context, id int64) (core.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile %d: %w", id, err)
	}
	return p, nil
}

// GetProfileByPhone loads a user by phone number.
func (r *SQLiteRepository) GetProfileByPhone(ctx context.Context, phone string) (core.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM users WHERE phone = ?`, phone))
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile by phone: %w", err)
	}
	return p, nil
}

// CreateProfile inserts p and returns it with its id and timestamps.
func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx, `INSERT INTO users
		(phone, name, income_cents, currency, theme, rule_needs, rule_wants, rule_savings, pin_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Phone, p.Name, p.Income.Cents, p.Currency, string(p.Theme),
		p.Rules.Needs, p.Rules.Wants, p.Rules.Savings, p.PINHash, now, now)
	if err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Profile{}, fmt.Errorf("create profile id: %w", err)
	}
	p.ID = id
	if p.CreatedAt, err = parseStamp(now); err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	p.UpdatedAt = p.CreatedAt

	slog.InfoContext(ctx, "User created", "user_id", id)
	return p, nil
}

func updateProfile(ctx context.Context, exec execer, p core.Profile, now string) error {
	res, err := exec.ExecContext(ctx, `UPDATE users SET
		name = ?, income_cents = ?, currency = ?, theme = ?,
		rule_needs = ?, rule_wants = ?, rule_savings = ?, pin_hash = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Income.Cents, p.Currency, string(p.Theme),
		p.Rules.Needs, p.Rules.Wants, p.Rules.Savings, p.PINHash, now, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile writes every mutable field of p.
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.Profile) error {
	if err := updateProfile(ctx, r.db, p, r.stamp()); err != nil {
		return fmt.Errorf("update profile %d: %w", p.ID, err)
	}
	return nil
}
