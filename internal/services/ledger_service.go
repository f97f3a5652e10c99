// Package services contains the business logic between the HTTP handlers and
// the storage layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/storage"

	"github.com/google/uuid"
)

// syncTokenAttempts bounds retries when a generated sync token collides.
const syncTokenAttempts = 5

// LedgerService orchestrates registration, login, accounts and transactions.
// Every operation that reads or writes user data takes the owning user's id
// and scopes all queries to it. The AMQP client is optional; when nil, events
// are skipped.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	tokens     *auth.TokenManager
	amqpClient *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, tokens *auth.TokenManager, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		tokens:     tokens,
		amqpClient: amqpClient,
	}
}

// Register creates a user together with their default "Cash Wallet" account
// and returns the user plus a fresh session token.
func (s *LedgerService) Register(ctx context.Context, name, email, password string) (*core.User, string, error) {
	if email == "" || password == "" {
		return nil, "", core.Invalid("Missing required fields")
	}
	if strings.TrimSpace(name) == "" {
		name = core.DefaultUserName
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	account := &core.Account{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Name:   core.DefaultAccountName,
		Icon:   core.DefaultAccountIcon,
	}

	// The sync token space is small enough that collisions are possible;
	// regenerate and retry when the unique index rejects one.
	for attempt := 0; ; attempt++ {
		user.SyncToken = core.NewSyncToken()
		err = s.storage.CreateUserWithAccount(ctx, user, account)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrSyncTokenTaken) && attempt < syncTokenAttempts-1 {
			continue
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.publish(ctx, amqp.EventUserRegistered, user.ID, user.ID)
	return user, token, nil
}

// Login verifies credentials and returns the user plus a fresh session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *LedgerService) Login(ctx context.Context, email, password string) (*core.User, string, error) {
	if email == "" || password == "" {
		return nil, "", core.Invalid("Missing email or password")
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, "", core.Unauthorized("Invalid credentials")
		}
		return nil, "", err
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", core.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx, userID)
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID, name, icon string) (*core.Account, error) {
	if strings.TrimSpace(icon) == "" {
		icon = core.DefaultNewAccountIcon
	}
	account := &core.Account{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Icon:   icon,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account and all of its transactions for that user.
func (s *LedgerService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if err := s.storage.DeleteAccount(ctx, userID, accountID); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventAccountDeleted, accountID, userID)
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID)
}

// CreateTransaction applies defaults, validates, and verifies that the target
// account belongs to the caller before recording the transaction.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (*core.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.UserID = userID
	tx.ApplyDefaults()
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.storage.GetAccount(ctx, userID, tx.AccountID); err != nil {
		return nil, err
	}

	if err := s.storage.CreateTransaction(ctx, &tx); err != nil {
		return nil, err
	}

	s.publish(ctx, amqp.EventTransactionCreated, tx.ID, userID)
	return &tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if err := s.storage.DeleteTransaction(ctx, userID, transactionID); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventTransactionDeleted, transactionID, userID)
	return nil
}

// GetUserByID resolves a verified token subject to a user record.
func (s *LedgerService) GetUserByID(ctx context.Context, userID string) (*core.User, error) {
	return s.storage.GetUserByID(ctx, userID)
}

func (s *LedgerService) publish(ctx context.Context, name, entityID, userID string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.Publish(ctx, amqp.NewEvent(name, entityID, userID)); err != nil {
		// Events are best-effort; the write already succeeded.
		slog.ErrorContext(ctx, "Failed to publish finance event",
			"event", name, "entity_id", entityID, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
