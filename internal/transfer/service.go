// Package transfer implements the transfer orchestrator: it resolves both
// legs, authorizes the caller, validates them against the limit policy, and
// applies the balance mutations and the transaction-log insert as one atomic
// unit of work.
package transfer

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"corebank/internal/account"
	"corebank/internal/domain"
	"corebank/pkg/errors"
	"corebank/pkg/logger"
)

type Service struct {
	accounts AccountResolver
	store    Store
	health   HealthChecker
	logger   logger.Logger
	now      func() time.Time
}

func NewService(accounts AccountResolver, store Store, health HealthChecker, log logger.Logger) *Service {
	return &Service{
		accounts: accounts,
		store:    store,
		health:   health,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// TransferRequest describes one fund movement. Exactly one of
// DestinationIdentifier or DestinationDetails must be set.
type TransferRequest struct {
	SourceIdentifier      string                      `json:"source_account" validate:"required"`
	DestinationIdentifier string                      `json:"destination_account,omitempty"`
	DestinationDetails    *domain.ExternalDestination `json:"destination_details,omitempty"`
	Amount                decimal.Decimal             `json:"amount" validate:"positive_amount"`
	Currency              string                      `json:"currency" validate:"required,currency_code"`
	Description           string                      `json:"description,omitempty"`
	Metadata              domain.Metadata             `json:"metadata,omitempty"`
}

// ErrAmbiguousDestination rejects requests that name both or neither
// destination form, before any account is resolved.
var ErrAmbiguousDestination = stderrors.New("specify exactly one of destination account or destination details")

// Transfer moves funds out of the source account, either to another account
// in the store or to an external destination. The request layer has already
// resolved the principal; the store health check runs before any work.
func (s *Service) Transfer(ctx context.Context, req *TransferRequest, p domain.Principal) (*domain.Transaction, error) {
	hasInternal := req.DestinationIdentifier != ""
	hasExternal := req.DestinationDetails != nil
	if hasInternal == hasExternal {
		return nil, ErrAmbiguousDestination
	}

	if err := s.health.Ready(ctx); err != nil {
		s.logger.Error("Store health check failed", map[string]interface{}{"error": err.Error()})
		return nil, errors.ErrStoreUnavailable
	}

	if hasExternal {
		return s.transferExternal(ctx, req, p)
	}
	return s.transferInternal(ctx, req, p)
}

func (s *Service) transferInternal(ctx context.Context, req *TransferRequest, p domain.Principal) (*domain.Transaction, error) {
	source, err := s.accounts.Resolve(ctx, req.SourceIdentifier)
	if err != nil {
		return nil, err
	}
	dest, err := s.accounts.Resolve(ctx, req.DestinationIdentifier)
	if err != nil {
		return nil, err
	}

	if source.UserID != p.ID && !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}

	if source.ID == dest.ID {
		return nil, errors.ErrSameAccount
	}

	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	currency := strings.ToUpper(req.Currency)
	if currency != source.Currency.Code {
		return nil, &errors.CurrencyMismatchError{
			SourceCurrency:      source.Currency.Code,
			DestinationCurrency: currency,
		}
	}
	if source.Currency.Code != dest.Currency.Code {
		return nil, &errors.CurrencyMismatchError{
			SourceCurrency:      source.Currency.Code,
			DestinationCurrency: dest.Currency.Code,
		}
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.processingFailure(err, "begin unit of work")
	}
	defer uow.Rollback()

	// Re-read both rows under exclusive locks; the pre-lock snapshots were
	// only used for identity, ownership, and currency checks.
	locked, err := uow.LockAccounts(ctx, source.ID, dest.ID)
	if err != nil {
		return nil, s.processingFailure(err, "lock accounts")
	}
	src, dst := locked[source.ID], locked[dest.ID]

	today := truncateToDay(s.now())
	if err := account.CheckDebit(src, req.Amount, today); err != nil {
		return nil, err
	}
	if err := account.CheckCredit(dst, req.Amount); err != nil {
		return nil, err
	}

	account.ApplyDebit(src, req.Amount, today)
	account.ApplyCredit(dst, req.Amount)

	record := s.newTransaction(req, src)
	record.Status = domain.TransactionStatusCompleted
	record.DestinationAccountID = &dst.ID
	if record.Description == "" {
		record.Description = fmt.Sprintf("Transfer from %s to %s", src.AccountNumber, dst.AccountNumber)
	}

	if err := uow.SaveAccount(ctx, src); err != nil {
		return nil, s.processingFailure(err, "save source account")
	}
	if err := uow.SaveAccount(ctx, dst); err != nil {
		return nil, s.processingFailure(err, "save destination account")
	}
	if err := uow.InsertTransaction(ctx, record); err != nil {
		return nil, s.processingFailure(err, "insert transaction")
	}
	if err := uow.Commit(); err != nil {
		return nil, s.processingFailure(err, "commit")
	}

	s.logger.Info("Transfer completed", map[string]interface{}{
		"transaction_id": record.ID,
		"source":         src.ID,
		"destination":    dst.ID,
		"amount":         req.Amount.String(),
		"currency":       record.Currency,
	})

	return record, nil
}

func (s *Service) transferExternal(ctx context.Context, req *TransferRequest, p domain.Principal) (*domain.Transaction, error) {
	source, err := s.accounts.Resolve(ctx, req.SourceIdentifier)
	if err != nil {
		return nil, err
	}

	if source.UserID != p.ID && !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}

	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	currency := strings.ToUpper(req.Currency)
	if currency != source.Currency.Code {
		return nil, &errors.CurrencyMismatchError{
			SourceCurrency:      source.Currency.Code,
			DestinationCurrency: currency,
		}
	}

	// Structural validation happens before any balance mutation.
	if err := validateExternalDestination(req.DestinationDetails); err != nil {
		return nil, err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.processingFailure(err, "begin unit of work")
	}
	defer uow.Rollback()

	locked, err := uow.LockAccounts(ctx, source.ID)
	if err != nil {
		return nil, s.processingFailure(err, "lock account")
	}
	src := locked[source.ID]

	today := truncateToDay(s.now())
	if err := account.CheckDebit(src, req.Amount, today); err != nil {
		return nil, err
	}

	account.ApplyDebit(src, req.Amount, today)

	record := s.newTransaction(req, src)
	record.Status = domain.TransactionStatusPendingExternal
	record.DestinationDetails = req.DestinationDetails
	if record.Description == "" {
		record.Description = fmt.Sprintf("External transfer from %s to %s",
			src.AccountNumber, req.DestinationDetails.BankName)
	}

	if err := uow.SaveAccount(ctx, src); err != nil {
		return nil, s.processingFailure(err, "save source account")
	}
	if err := uow.InsertTransaction(ctx, record); err != nil {
		return nil, s.processingFailure(err, "insert transaction")
	}
	if err := uow.Commit(); err != nil {
		return nil, s.processingFailure(err, "commit")
	}

	s.logger.Info("External transfer initiated", map[string]interface{}{
		"transaction_id": record.ID,
		"source":         src.ID,
		"bank_name":      req.DestinationDetails.BankName,
		"amount":         req.Amount.String(),
	})

	return record, nil
}

func (s *Service) newTransaction(req *TransferRequest, src *domain.Account) *domain.Transaction {
	now := s.now()
	return &domain.Transaction{
		ID:              uuid.New(),
		Amount:          req.Amount,
		Currency:        src.Currency.Code,
		Type:            domain.TransactionTypeTransfer,
		SourceAccountID: &src.ID,
		Description:     req.Description,
		Metadata:        req.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// processingFailure hides internal store faults behind ErrProcessingFailure.
// The caller never observes partial state or internal diagnostic detail.
func (s *Service) processingFailure(err error, stage string) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrStoreUnavailable
	}
	s.logger.Error("Transfer aborted", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
	return errors.ErrProcessingFailure
}

func validateExternalDestination(d *domain.ExternalDestination) error {
	if strings.TrimSpace(d.BankName) == "" {
		return &errors.ExternalValidationError{Detail: "bank_name is required"}
	}
	if strings.TrimSpace(d.AccountNumber) == "" {
		return &errors.ExternalValidationError{Detail: "account_number is required"}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AccountResolver resolves identifiers (opaque id or account number) to
// account snapshots outside any unit of work.
type AccountResolver interface {
	Resolve(ctx context.Context, identifier string) (*domain.Account, error)
}

// Store opens atomic units of work over the account store.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is one atomic scope: locked reads, writes, and the transaction
// insert commit together or not at all. Rollback after Commit is a no-op.
type UnitOfWork interface {
	// LockAccounts takes exclusive mutation scope on the given accounts,
	// acquiring locks in ascending id order regardless of argument order.
	LockAccounts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error)
	SaveAccount(ctx context.Context, acct *domain.Account) error
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	Commit() error
	Rollback() error
}

// HealthChecker reports whether the backing store is reachable. Queried at
// the start of every unit of work rather than consulted as ambient state.
type HealthChecker interface {
	Ready(ctx context.Context) error
}
