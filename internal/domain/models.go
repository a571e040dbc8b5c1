// Package domain holds the core ledger types shared across services.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code with display metadata, stored as JSONB.
type Currency struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

func (c Currency) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Currency) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, c)
}

// AccountType distinguishes the supported account products.
type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

// AccountStatus gates debits and credits on an account.
type AccountStatus string

const (
	AccountStatusUnrestricted AccountStatus = "unrestricted"
	AccountStatusRestricted   AccountStatus = "restricted"
	AccountStatusFrozen       AccountStatus = "frozen"
)

// Account is a ledger account. Balance is mutated only inside a transfer
// unit of work; DailyDebitTotal is meaningful only together with
// LastDebitDate (see account.EffectiveDailyTotal).
type Account struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	AccountNumber   string           `json:"account_number" db:"account_number"`
	Type            AccountType      `json:"type" db:"account_type"`
	Currency        Currency         `json:"currency" db:"currency"`
	Balance         decimal.Decimal  `json:"balance" db:"balance"`
	BalanceLimit    *decimal.Decimal `json:"balance_limit,omitempty" db:"balance_limit"`
	DailyDebitLimit *decimal.Decimal `json:"daily_debit_limit,omitempty" db:"daily_debit_limit"`
	DailyDebitTotal decimal.Decimal  `json:"daily_debit_total" db:"daily_debit_total"`
	LastDebitDate   *time.Time       `json:"last_debit_date,omitempty" db:"last_debit_date"`
	Status          AccountStatus    `json:"status" db:"status"`
	StatusReason    string           `json:"status_reason" db:"status_reason"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// TransactionType categorises transaction records.
type TransactionType string

const (
	TransactionTypeTransfer    TransactionType = "transfer"
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
	TransactionTypePayment     TransactionType = "payment"
	TransactionTypeFee         TransactionType = "fee"
	TransactionTypeManualEntry TransactionType = "manual_entry"
)

// TransactionStatus represents transaction lifecycle states.
type TransactionStatus string

const (
	TransactionStatusPending         TransactionStatus = "pending"
	TransactionStatusProcessing      TransactionStatus = "processing"
	TransactionStatusCompleted       TransactionStatus = "completed"
	TransactionStatusFailed          TransactionStatus = "failed"
	TransactionStatusCancelled       TransactionStatus = "cancelled"
	TransactionStatusPendingExternal TransactionStatus = "pending_external"
	TransactionStatusReversed        TransactionStatus = "reversed"
)

// Metadata holds arbitrary key-value metadata, stored as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// ExternalDestination describes an off-ledger transfer target. BankName and
// AccountNumber are required; Extra carries free-form routing fields.
type ExternalDestination struct {
	BankName      string                 `json:"bank_name"`
	AccountNumber string                 `json:"account_number"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

func (d ExternalDestination) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *ExternalDestination) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, d)
}

// Transaction is the immutable record of an attempted fund movement.
// Exactly one of DestinationAccountID or DestinationDetails is set for a
// transfer; both are nil only for credit-origin records such as deposits.
// Amount, currency, and participants never change after insert.
type Transaction struct {
	ID                   uuid.UUID            `json:"id" db:"id"`
	Amount               decimal.Decimal      `json:"amount" db:"amount"`
	Currency             string               `json:"currency" db:"currency"`
	Type                 TransactionType      `json:"type" db:"transaction_type"`
	Status               TransactionStatus    `json:"status" db:"status"`
	SourceAccountID      *uuid.UUID           `json:"source_account_id,omitempty" db:"source_account_id"`
	DestinationAccountID *uuid.UUID           `json:"destination_account_id,omitempty" db:"destination_account_id"`
	DestinationDetails   *ExternalDestination `json:"destination_details,omitempty" db:"destination_details"`
	Description          string               `json:"description" db:"description"`
	Metadata             Metadata             `json:"metadata,omitempty" db:"metadata"`
	CreatedAt            time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at" db:"updated_at"`
}

// User is an account-owning principal.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Principal is the resolved caller identity supplied by the auth layer.
type Principal struct {
	ID      uuid.UUID
	IsAdmin bool
}
