// Package storage persists users, accounts and transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finsight/internal/core"

	_ "modernc.org/sqlite"
)

// ErrSyncTokenTaken signals a sync token collision on user creation. Callers
// regenerate the token and retry.
var ErrSyncTokenTaken = errors.New("sync token already in use")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUserWithAccount creates the user and their default account as one
// transaction. A user without their default account must never be observable.
func (r *SQLiteRepository) CreateUserWithAccount(ctx context.Context, u *core.User, a *core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", u.Email).Scan(&existing)
	if err == nil {
		return core.Conflict("User with this email already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check existing email: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, sync_token, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.SyncToken, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return core.Conflict("User with this email already exists")
		}
		if isUniqueViolation(err, "users.sync_token") {
			return ErrSyncTokenTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO accounts (id, user_id, name, icon) VALUES (?, ?, ?, ?)",
		a.ID, a.UserID, a.Name, a.Icon,
	)
	if err != nil {
		return fmt.Errorf("insert default account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "default_account_id", a.ID)
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.getUser(ctx, "SELECT id, name, email, password_hash, sync_token, created_at FROM users WHERE email = ?", email)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return r.getUser(ctx, "SELECT id, name, email, password_hash, sync_token, created_at FROM users WHERE id = ?", id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query, arg string) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.SyncToken, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, icon FROM accounts WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Icon); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, user_id, name, icon) VALUES (?, ?, ?, ?)",
		a.ID, a.UserID, a.Name, a.Icon,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount returns the account only if it belongs to userID.
func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (*core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, icon FROM accounts WHERE id = ? AND user_id = ?", id, userID,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// DeleteAccount removes the account and every transaction referencing it for
// that user in one transaction, so no orphaned transactions remain.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owned string
	err = tx.QueryRowContext(ctx, "SELECT id FROM accounts WHERE id = ? AND user_id = ?", id, userID).Scan(&owned)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound("Account not found")
	}
	if err != nil {
		return fmt.Errorf("check account ownership: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete account transactions: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted", "account_id", id, "user_id", userID, "transactions_removed", removed)
	return nil
}

// ListTransactions returns the user's transactions ordered by date descending.
// Dates are YYYY-MM-DD strings, so lexicographic order is chronological.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, amount, description, category, date, type, method
		 FROM transactions WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Amount, &t.Description, &t.Category, &t.Date, &t.Type, &t.Method); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, amount, description, category, date, type, method)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Amount, t.Description, t.Category, t.Date, t.Type, t.Method,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.NotFound("Transaction not found")
	}
	return nil
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
