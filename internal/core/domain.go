package core

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	DateLayout = "2006-01-02"

	DefaultUserName       = "New User"
	DefaultAccountName    = "Cash Wallet"
	DefaultAccountIcon    = "💰"
	DefaultNewAccountIcon = "💼"
	DefaultDescription    = "No description"
	DefaultCategory       = "Other"
	DefaultType           = TypeExpense
	DefaultMethod         = "cash"
)

type (
	User struct {
		ID           string
		Name         string
		Email        string
		PasswordHash string
		SyncToken    string
		CreatedAt    time.Time
	}

	Account struct {
		ID     string
		UserID string
		Name   string
		Icon   string
	}

	Transaction struct {
		ID          string
		UserID      string
		AccountID   string
		Amount      float64
		Description string
		Category    string
		Date        string // YYYY-MM-DD
		Type        string
		Method      string
	}
)

// PublicUser is the wire representation of a user. The password hash never
// leaves the process.
type PublicUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	SyncToken string `json:"syncToken"`
}

type PublicAccount struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type PublicTransaction struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"accountId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Method      string  `json:"method"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, SyncToken: u.SyncToken}
}

func (a Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Name: a.Name, Icon: a.Icon}
}

func (t Transaction) Public() PublicTransaction {
	return PublicTransaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date,
		Type:        t.Type,
		Method:      t.Method,
	}
}

// NewSyncToken returns a fresh human-shareable sync token in the form
// SF-XXXXXX where X is an uppercase hex digit. Uniqueness is enforced by the
// storage layer; callers retry on collision.
func NewSyncToken() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return "SF-" + strings.ToUpper(hex.EncodeToString(buf))
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return Invalid("Account name is required")
	}
	return nil
}

// ApplyDefaults fills the optional transaction fields the same way the API
// contract documents them: description, category, type and method fall back
// to fixed labels, the date falls back to today.
func (t *Transaction) ApplyDefaults() {
	if strings.TrimSpace(t.Description) == "" {
		t.Description = DefaultDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	if strings.TrimSpace(t.Date) == "" {
		t.Date = time.Now().Format(DateLayout)
	}
	if strings.TrimSpace(t.Type) == "" {
		t.Type = DefaultType
	}
	if strings.TrimSpace(t.Method) == "" {
		t.Method = DefaultMethod
	}
}

func (t Transaction) Validate() error {
	if t.AccountID == "" || t.Amount == 0 {
		return Invalid("Missing transaction data")
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return Invalid("Transaction type must be income or expense")
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return Invalid("Transaction date must be YYYY-MM-DD")
	}
	return nil
}
