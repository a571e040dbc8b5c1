package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"corebank/internal/domain"
	"corebank/internal/transaction"
	"corebank/pkg/errors"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, amount, currency, transaction_type, status, source_account_id,
	destination_account_id, destination_details,
	COALESCE(description, '') AS description, metadata, created_at, updated_at
`

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, r.db, tx)
}

// Update writes the restricted mutable field set only; amount, currency, and
// participants are immutable after insert.
func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions SET
			status = $1, description = $2, metadata = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.Status, tx.Description, tx.Metadata, tx.UpdatedAt, tx.ID)
	return errors.Wrap(err, "failed to update transaction")
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	err := r.db.GetContext(ctx, &tx, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transaction")
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &txs, query, accountID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transactions by account")
	}
	return txs, nil
}

func (r *TransactionRepository) FindFiltered(ctx context.Context, f transaction.Filter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var clauses []string
	var args []interface{}

	if len(f.AccountIDs) > 0 {
		args = append(args, pq.Array(f.AccountIDs))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(source_account_id = ANY($%d) OR destination_account_id = ANY($%d))", n, n))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		clauses = append(clauses, fmt.Sprintf("transaction_type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var txs []*domain.Transaction
	err := r.db.SelectContext(ctx, &txs, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}
	return txs, nil
}

// insertTransaction is shared between the standalone repository and the
// transfer unit of work so both paths write identical rows.
func insertTransaction(ctx context.Context, execer sqlx.ExtContext, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, amount, currency, transaction_type, status, source_account_id,
			destination_account_id, destination_details, description, metadata,
			created_at, updated_at
		) VALUES (
			:id, :amount, :currency, :transaction_type, :status, :source_account_id,
			:destination_account_id, :destination_details, :description, :metadata,
			:created_at, :updated_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, execer, query, tx)
	return errors.Wrap(err, "failed to insert transaction")
}
