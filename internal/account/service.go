// Package account implements the account store: durable keyed storage of
// ledger accounts plus the pure debit/credit limit policy.
package account

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"corebank/internal/domain"
	"corebank/pkg/errors"
	"corebank/pkg/logger"
)

// DefaultCurrencies is the seeded currency catalog for new accounts.
var DefaultCurrencies = map[string]domain.Currency{
	"NGN": {Name: "Nigerian Naira", Code: "NGN", Symbol: "₦"},
	"USD": {Name: "US Dollar", Code: "USD", Symbol: "$"},
}

type Service struct {
	repo     Repository
	logger   logger.Logger
	defaults Defaults
}

// Defaults are the limits applied when a new account does not specify its own.
type Defaults struct {
	BalanceLimit    decimal.Decimal
	DailyDebitLimit decimal.Decimal
}

func NewService(repo Repository, defaults Defaults, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		logger:   log,
		defaults: defaults,
	}
}

// Resolve looks up an account by opaque id first, falling back to the
// human-readable account number. The precedence is fixed and the lookup is
// side-effect free.
func (s *Service) Resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		acct, err := s.repo.FindByID(ctx, id)
		if err == nil {
			return acct, nil
		}
		if !stderrors.Is(err, errors.ErrAccountNotFound) {
			return nil, err
		}
	}

	acct, err := s.repo.FindByNumber(ctx, identifier)
	if err != nil {
		if stderrors.Is(err, errors.ErrAccountNotFound) {
			return nil, &errors.NotFoundError{Identifier: identifier}
		}
		return nil, err
	}
	return acct, nil
}

type CreateAccountRequest struct {
	UserID          uuid.UUID        `json:"user_id" validate:"required"`
	Type            string           `json:"type" validate:"required"`
	CurrencyCode    string           `json:"currency_code" validate:"omitempty,currency_code"`
	BalanceLimit    *decimal.Decimal `json:"balance_limit,omitempty"`
	DailyDebitLimit *decimal.Decimal `json:"daily_debit_limit,omitempty"`
}

// CreateAccount opens a new zero-balance account for a user.
func (s *Service) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*domain.Account, error) {
	acctType := domain.AccountType(strings.ToLower(req.Type))
	if acctType != domain.AccountTypeSavings && acctType != domain.AccountTypeCurrent {
		return nil, errors.Wrap(errors.ErrInvalidAccountType, fmt.Sprintf("type %q", req.Type))
	}

	code := strings.ToUpper(req.CurrencyCode)
	if code == "" {
		code = "NGN"
	}
	currency, ok := DefaultCurrencies[code]
	if !ok {
		return nil, errors.Wrap(errors.ErrInvalidCurrency, code)
	}

	if req.BalanceLimit != nil && req.BalanceLimit.IsNegative() {
		return nil, errors.ErrInvalidLimitValue
	}
	if req.DailyDebitLimit != nil && req.DailyDebitLimit.IsNegative() {
		return nil, errors.ErrInvalidLimitValue
	}

	balanceLimit := s.defaults.BalanceLimit
	if req.BalanceLimit != nil {
		balanceLimit = *req.BalanceLimit
	}
	dailyDebitLimit := s.defaults.DailyDebitLimit
	if req.DailyDebitLimit != nil {
		dailyDebitLimit = *req.DailyDebitLimit
	}

	now := time.Now().UTC()
	acct := &domain.Account{
		ID:              uuid.New(),
		UserID:          req.UserID,
		AccountNumber:   generateAccountNumber(req.UserID, now),
		Type:            acctType,
		Currency:        currency,
		Balance:         decimal.Zero,
		BalanceLimit:    &balanceLimit,
		DailyDebitLimit: &dailyDebitLimit,
		DailyDebitTotal: decimal.Zero,
		Status:          domain.AccountStatusUnrestricted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", map[string]interface{}{
		"account_id":     acct.ID,
		"account_number": acct.AccountNumber,
		"user_id":        req.UserID,
		"currency":       currency.Code,
	})

	return acct, nil
}

// GetAccount fetches an account by identifier, enforcing owner-or-admin access.
func (s *Service) GetAccount(ctx context.Context, identifier string, p domain.Principal) (*domain.Account, error) {
	acct, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acct.UserID != p.ID && !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}
	return acct, nil
}

// GetUserAccounts lists all accounts owned by a user.
func (s *Service) GetUserAccounts(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	return s.repo.FindByUserID(ctx, userID)
}

type UpdateLimitsRequest struct {
	BalanceLimit    *decimal.Decimal `json:"balance_limit,omitempty"`
	DailyDebitLimit *decimal.Decimal `json:"daily_debit_limit,omitempty"`
}

// UpdateLimits changes an account's balance and/or daily debit limit. Only the
// owner or an administrator may change limits.
func (s *Service) UpdateLimits(ctx context.Context, identifier string, p domain.Principal, req *UpdateLimitsRequest) (*domain.Account, error) {
	acct, err := s.GetAccount(ctx, identifier, p)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.BalanceLimit != nil {
		if req.BalanceLimit.IsNegative() {
			return nil, errors.ErrInvalidLimitValue
		}
		acct.BalanceLimit = req.BalanceLimit
		updated = true
	}
	if req.DailyDebitLimit != nil {
		if req.DailyDebitLimit.IsNegative() {
			return nil, errors.ErrInvalidLimitValue
		}
		acct.DailyDebitLimit = req.DailyDebitLimit
		updated = true
	}

	if updated {
		if err := s.repo.SaveLimits(ctx, acct); err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// UpdateStatus changes an account's status. Administrators only.
func (s *Service) UpdateStatus(ctx context.Context, identifier string, p domain.Principal, status string, reason string) (*domain.Account, error) {
	if !p.IsAdmin {
		return nil, errors.ErrUnauthorized
	}

	st := domain.AccountStatus(strings.ToLower(status))
	switch st {
	case domain.AccountStatusUnrestricted, domain.AccountStatusRestricted, domain.AccountStatusFrozen:
	default:
		return nil, fmt.Errorf("status must be one of unrestricted, restricted, frozen")
	}

	acct, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	acct.Status = st
	acct.StatusReason = reason
	if err := s.repo.SaveStatus(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.Info("Account status updated", map[string]interface{}{
		"account_id": acct.ID,
		"status":     st,
		"admin_id":   p.ID,
	})

	return acct, nil
}

// DeleteAccount removes an account. Only allowed at zero balance.
func (s *Service) DeleteAccount(ctx context.Context, identifier string, p domain.Principal) error {
	acct, err := s.GetAccount(ctx, identifier, p)
	if err != nil {
		return err
	}

	if !acct.Balance.IsZero() {
		return &errors.AccountStatusError{
			AccountID: acct.ID.String(),
			Operation: "delete",
			Status:    string(acct.Status),
			Reason:    fmt.Sprintf("account balance (%s %s) is not zero", acct.Balance, acct.Currency.Code),
		}
	}

	return s.repo.Delete(ctx, acct.ID)
}

// generateAccountNumber derives a 10-digit account number from the owner id
// and creation time, matching the numbering scheme of existing accounts.
func generateAccountNumber(userID uuid.UUID, now time.Time) string {
	raw := fmt.Sprintf("%s%d", strings.ReplaceAll(userID.String(), "-", ""), now.UnixNano())
	return raw[len(raw)-10:]
}

type Repository interface {
	Create(ctx context.Context, acct *domain.Account) error
	SaveLimits(ctx context.Context, acct *domain.Account) error
	SaveStatus(ctx context.Context, acct *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByNumber(ctx context.Context, number string) (*domain.Account, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
