// Package errors defines the ledger core's error taxonomy: sentinel values the
// request layer can match with errors.Is, plus typed errors carrying the
// structured context (amounts, limits, identifiers) of a rejected operation.
package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Typed errors below unwrap to one of these.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrSameAccount            = errors.New("source and destination accounts cannot be the same")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrAccountStatus          = errors.New("operation not allowed for account status")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrDailyLimitExceeded     = errors.New("daily debit limit exceeded")
	ErrBalanceLimitExceeded   = errors.New("balance limit exceeded")
	ErrExternalValidation     = errors.New("invalid external destination details")
	ErrStoreUnavailable       = errors.New("account store unavailable")
	ErrProcessingFailure      = errors.New("transfer processing failed")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidCurrency        = errors.New("unsupported currency")
	ErrInvalidLimitValue      = errors.New("limit values must be non-negative")
	ErrInvalidTransition      = errors.New("invalid transaction status transition")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// NotFoundError reports an identifier that resolved to no account.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account with identifier %q not found", e.Identifier)
}

func (e *NotFoundError) Unwrap() error { return ErrAccountNotFound }

// InsufficientFundsError reports a debit larger than the available balance.
type InsufficientFundsError struct {
	AccountID string
	Needed    decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s: required %s, available %s",
		e.AccountID, e.Needed, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// DailyLimitExceededError reports a debit that would push the effective daily
// total past the configured cap.
type DailyLimitExceededError struct {
	AccountID  string
	Attempted  decimal.Decimal
	Limit      decimal.Decimal
	DailyTotal decimal.Decimal
}

func (e *DailyLimitExceededError) Error() string {
	return fmt.Sprintf("daily debit limit exceeded for account %s: attempted %s, limit %s, spent today %s",
		e.AccountID, e.Attempted, e.Limit, e.DailyTotal)
}

func (e *DailyLimitExceededError) Unwrap() error { return ErrDailyLimitExceeded }

// BalanceLimitExceededError reports a credit that would exceed the balance cap.
type BalanceLimitExceededError struct {
	AccountID      string
	Attempted      decimal.Decimal
	Limit          decimal.Decimal
	CurrentBalance decimal.Decimal
}

func (e *BalanceLimitExceededError) Error() string {
	return fmt.Sprintf("balance limit exceeded for account %s: attempted credit %s, limit %s, current balance %s",
		e.AccountID, e.Attempted, e.Limit, e.CurrentBalance)
}

func (e *BalanceLimitExceededError) Unwrap() error { return ErrBalanceLimitExceeded }

// AccountStatusError reports an operation blocked by the account's status.
type AccountStatusError struct {
	AccountID string
	Operation string
	Status    string
	Reason    string
}

func (e *AccountStatusError) Error() string {
	msg := fmt.Sprintf("operation %q not allowed for account %s with status %q",
		e.Operation, e.AccountID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AccountStatusError) Unwrap() error { return ErrAccountStatus }

// CurrencyMismatchError reports transfer legs that disagree on currency.
type CurrencyMismatchError struct {
	SourceCurrency      string
	DestinationCurrency string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: cannot transfer %s to %s directly",
		e.SourceCurrency, e.DestinationCurrency)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// ExternalValidationError reports structurally invalid external destination details.
type ExternalValidationError struct {
	Detail string
}

func (e *ExternalValidationError) Error() string {
	return fmt.Sprintf("external transfer validation failed: %s", e.Detail)
}

func (e *ExternalValidationError) Unwrap() error { return ErrExternalValidation }

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
