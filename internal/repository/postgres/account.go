// Package postgres implements the store repositories over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"corebank/internal/domain"
	"corebank/pkg/errors"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, user_id, account_number, account_type, currency, balance,
	balance_limit, daily_debit_limit, daily_debit_total, last_debit_date,
	status, COALESCE(status_reason, '') AS status_reason, created_at, updated_at
`

func (r *AccountRepository) Create(ctx context.Context, acct *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, user_id, account_number, account_type, currency, balance,
			balance_limit, daily_debit_limit, daily_debit_total, last_debit_date,
			status, status_reason, created_at, updated_at
		) VALUES (
			:id, :user_id, :account_number, :account_type, :currency, :balance,
			:balance_limit, :daily_debit_limit, :daily_debit_total, :last_debit_date,
			:status, :status_reason, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, acct)
	return errors.Wrap(err, "failed to create account")
}

// saveAccountQuery persists the full account snapshot. Callers must hold the
// row lock (unit of work) before using it.
const saveAccountQuery = `
	UPDATE accounts SET
		balance = :balance,
		balance_limit = :balance_limit,
		daily_debit_limit = :daily_debit_limit,
		daily_debit_total = :daily_debit_total,
		last_debit_date = :last_debit_date,
		status = :status,
		status_reason = :status_reason,
		updated_at = :updated_at
	WHERE id = :id
`

// SaveLimits writes only the limit columns. Balance and daily usage move
// exclusively inside a unit of work holding row locks, so a concurrent
// transfer cannot be overwritten here.
func (r *AccountRepository) SaveLimits(ctx context.Context, acct *domain.Account) error {
	query := `
		UPDATE accounts SET
			balance_limit = :balance_limit,
			daily_debit_limit = :daily_debit_limit,
			updated_at = :updated_at
		WHERE id = :id
	`
	acct.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, acct)
	return errors.Wrap(err, "failed to update account limits")
}

// SaveStatus writes only the status columns, leaving money columns untouched.
func (r *AccountRepository) SaveStatus(ctx context.Context, acct *domain.Account) error {
	query := `
		UPDATE accounts SET
			status = :status,
			status_reason = :status_reason,
			updated_at = :updated_at
		WHERE id = :id
	`
	acct.UpdatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, query, acct)
	return errors.Wrap(err, "failed to update account status")
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acct := &domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	err := r.db.GetContext(ctx, acct, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "failed to find account by id")
	}
	return acct, nil
}

func (r *AccountRepository) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	acct := &domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	err := r.db.GetContext(ctx, acct, query, number)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "failed to find account by number")
	}
	return acct, nil
}

func (r *AccountRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at`
	err := r.db.SelectContext(ctx, &accounts, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find accounts by user id")
	}
	return accounts, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete account")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}
