package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finsight_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return NewLedgerService(repo, auth.NewTokenManager("test-secret", time.Hour), nil)
}

func TestRegisterCreatesDefaultAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "Ada", user.Name)
	assert.Regexp(t, `^SF-[0-9A-F]{6}$`, user.SyncToken)

	accounts, err := svc.ListAccounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, core.DefaultAccountName, accounts[0].Name)
	assert.Equal(t, core.DefaultAccountIcon, accounts[0].Icon)
}

func TestRegisterDefaultsName(t *testing.T) {
	svc := newTestService(t)

	user, _, err := svc.Register(context.Background(), "", "anon@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultUserName, user.Name)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "", "pw")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = svc.Register(ctx, "Ada", "ada@example.com", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "dup@example.com", "pw")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Eve", "dup@example.com", "pw2")
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "ada@example.com", "wrong")
	_, _, unknownEmail := svc.Login(ctx, "nobody@example.com", "whatever")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.ErrorIs(t, wrongPassword, core.ErrUnauthorized)
	assert.ErrorIs(t, unknownEmail, core.ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginValidation(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCreateAccountDefaultsIcon(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	account, err := svc.CreateAccount(ctx, user.ID, "Savings", "")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultNewAccountIcon, account.Icon)

	_, err = svc.CreateAccount(ctx, user.ID, "", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCreateTransactionAppliesDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	accounts, err := svc.ListAccounts(ctx, user.ID)
	require.NoError(t, err)

	tx, err := svc.CreateTransaction(ctx, user.ID, core.Transaction{
		AccountID: accounts[0].ID,
		Amount:    42.5,
	})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDescription, tx.Description)
	assert.Equal(t, core.DefaultCategory, tx.Category)
	assert.Equal(t, core.TypeExpense, tx.Type)
	assert.Equal(t, core.DefaultMethod, tx.Method)
	assert.NotEmpty(t, tx.Date)
}

func TestCreateTransactionRejectsForeignAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _, err := svc.Register(ctx, "Alice", "alice@example.com", "pw")
	require.NoError(t, err)
	bob, _, err := svc.Register(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)

	bobAccounts, err := svc.ListAccounts(ctx, bob.ID)
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, alice.ID, core.Transaction{
		AccountID: bobAccounts[0].ID,
		Amount:    10,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTransactionValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, user.ID, core.Transaction{Amount: 10})
	assert.ErrorIs(t, err, core.ErrValidation)

	accounts, err := svc.ListAccounts(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, user.ID, core.Transaction{AccountID: accounts[0].ID})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDeleteAccountCascade(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	accounts, err := svc.ListAccounts(ctx, user.ID)
	require.NoError(t, err)
	wallet := accounts[0]

	savings, err := svc.CreateAccount(ctx, user.ID, "Savings", "🏦")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, user.ID, core.Transaction{AccountID: savings.ID, Amount: 10, Date: "2024-01-01"})
	require.NoError(t, err)
	kept, err := svc.CreateTransaction(ctx, user.ID, core.Transaction{AccountID: wallet.ID, Amount: 20, Date: "2024-01-02"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, user.ID, savings.ID))

	transactions, err := svc.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, kept.ID, transactions[0].ID)
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := &LedgerService{}
	assert.NoError(t, svc.Close())
}
