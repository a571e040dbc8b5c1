// Package transaction implements the transaction log: per-account history
// queries plus the narrow, administrator-gated update path. Records are
// inserted by the transfer orchestrator (inside its unit of work) or as
// admin manual entries; they are never deleted and their amount, currency,
// and participants never change.
package transaction

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"corebank/internal/domain"
	"corebank/pkg/errors"
	"corebank/pkg/logger"
)

type Service struct {
	repo     Repository
	accounts AccountReader
	logger   logger.Logger
}

func NewService(repo Repository, accounts AccountReader, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   log,
	}
}

// allowedTransitions encodes the one-directional status lifecycle. The only
// path out of completed is an explicit reversal.
var allowedTransitions = map[domain.TransactionStatus][]domain.TransactionStatus{
	domain.TransactionStatusPending: {
		domain.TransactionStatusProcessing,
		domain.TransactionStatusCompleted,
		domain.TransactionStatusFailed,
		domain.TransactionStatusCancelled,
	},
	domain.TransactionStatusProcessing: {
		domain.TransactionStatusCompleted,
		domain.TransactionStatusFailed,
	},
	domain.TransactionStatusPendingExternal: {
		domain.TransactionStatusCompleted,
		domain.TransactionStatusFailed,
		domain.TransactionStatusCancelled,
	},
	domain.TransactionStatusCompleted: {
		domain.TransactionStatusReversed,
	},
}

func canTransition(from, to domain.TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GetTransaction fetches one record. Access is restricted to principals who
// own a participating account, or administrators.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID, p domain.Principal) (*domain.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin {
		return tx, nil
	}

	ok, err := s.involvesPrincipal(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrUnauthorized
	}
	return tx, nil
}

// GetAccountTransactions lists a single account's history, newest first.
func (s *Service) GetAccountTransactions(ctx context.Context, accountID uuid.UUID, p domain.Principal, limit, offset int) ([]*domain.Transaction, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.UserID != p.ID && !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}
	return s.repo.FindByAccount(ctx, accountID, limit, offset)
}

// Filter narrows a transaction listing. Empty fields match everything.
type Filter struct {
	AccountIDs []uuid.UUID
	Type       domain.TransactionType
	Status     domain.TransactionStatus
	Limit      int
	Offset     int
}

// List returns transactions matching the filter. Non-admin callers are
// restricted to their own accounts regardless of the requested filter.
func (s *Service) List(ctx context.Context, p domain.Principal, f Filter) ([]*domain.Transaction, error) {
	if !p.IsAdmin {
		owned, err := s.accounts.FindByUserID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		ownedIDs := make(map[uuid.UUID]bool, len(owned))
		for _, acct := range owned {
			ownedIDs[acct.ID] = true
		}

		if len(f.AccountIDs) == 0 {
			for id := range ownedIDs {
				f.AccountIDs = append(f.AccountIDs, id)
			}
			if len(f.AccountIDs) == 0 {
				return []*domain.Transaction{}, nil
			}
		} else {
			for _, id := range f.AccountIDs {
				if !ownedIDs[id] {
					return nil, errors.ErrUnauthorized
				}
			}
		}
	}

	return s.repo.FindFiltered(ctx, f)
}

// UpdateRequest carries the restricted field set an administrator may change
// after the fact. Everything else on a transaction is immutable.
type UpdateRequest struct {
	Description *string         `json:"description,omitempty"`
	Status      *string         `json:"status,omitempty"`
	Metadata    domain.Metadata `json:"metadata,omitempty"`
}

// Update applies a restricted update to a committed transaction. Status
// changes must follow the one-directional lifecycle.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p domain.Principal, req *UpdateRequest) (*domain.Transaction, error) {
	if !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		next := domain.TransactionStatus(strings.ToLower(*req.Status))
		if next != tx.Status {
			if !canTransition(tx.Status, next) {
				return nil, errors.Wrap(errors.ErrInvalidTransition,
					string(tx.Status)+" -> "+string(next))
			}
			tx.Status = next
		}
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.Metadata != nil {
		if tx.Metadata == nil {
			tx.Metadata = make(domain.Metadata)
		}
		for k, v := range req.Metadata {
			tx.Metadata[k] = v
		}
	}

	tx.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction updated", map[string]interface{}{
		"transaction_id": tx.ID,
		"status":         tx.Status,
		"admin_id":       p.ID,
	})

	return tx, nil
}

// ManualEntryRequest creates a record without moving funds, for
// administrative bookkeeping (fees, corrections, imported entries).
type ManualEntryRequest struct {
	Amount               decimal.Decimal `json:"amount" validate:"positive_amount"`
	Currency             string          `json:"currency" validate:"required,currency_code"`
	Type                 string          `json:"type" validate:"required"`
	SourceAccountID      *uuid.UUID      `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID      `json:"destination_account_id,omitempty"`
	Description          string          `json:"description,omitempty"`
	Metadata             domain.Metadata `json:"metadata,omitempty"`
}

// CreateManualEntry appends an administrative record. It does not touch
// balances; fund movements go through the transfer orchestrator.
func (s *Service) CreateManualEntry(ctx context.Context, p domain.Principal, req *ManualEntryRequest) (*domain.Transaction, error) {
	if !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	txType := domain.TransactionType(strings.ToLower(req.Type))
	switch txType {
	case domain.TransactionTypeDeposit, domain.TransactionTypeWithdrawal,
		domain.TransactionTypePayment, domain.TransactionTypeFee,
		domain.TransactionTypeManualEntry:
	default:
		return nil, errors.Wrap(errors.ErrInvalidTransactionType, "type "+req.Type+" cannot be created manually")
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:                   uuid.New(),
		Amount:               req.Amount,
		Currency:             strings.ToUpper(req.Currency),
		Type:                 txType,
		Status:               domain.TransactionStatusCompleted,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Description:          req.Description,
		Metadata:             req.Metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) involvesPrincipal(ctx context.Context, tx *domain.Transaction, p domain.Principal) (bool, error) {
	for _, ref := range []*uuid.UUID{tx.SourceAccountID, tx.DestinationAccountID} {
		if ref == nil {
			continue
		}
		acct, err := s.accounts.FindByID(ctx, *ref)
		if err != nil {
			// A deleted leg is not the caller's; anything else is a store
			// fault and must not be mistaken for a denial.
			if stderrors.Is(err, errors.ErrAccountNotFound) {
				continue
			}
			return false, err
		}
		if acct.UserID == p.ID {
			return true, nil
		}
	}
	return false, nil
}

type Repository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error)
	FindFiltered(ctx context.Context, f Filter) ([]*domain.Transaction, error)
}

type AccountReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error)
}
