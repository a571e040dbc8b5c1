package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"corebank/internal/domain"
	"corebank/internal/transfer"
	"corebank/pkg/errors"
)

// Store opens serializable transactions for transfer execution.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Begin(ctx context.Context) (transfer.UnitOfWork, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &unitOfWork{tx: tx}, nil
}

type unitOfWork struct {
	tx   *sqlx.Tx
	done bool
}

// LockAccounts acquires row locks in ascending id order so concurrent
// transfers touching the same pair cannot deadlock against each other.
func (u *unitOfWork) LockAccounts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	ordered := make([]uuid.UUID, len(ids))
	copy(ordered, ids)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	accounts := make(map[uuid.UUID]*domain.Account, len(ordered))
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	for _, id := range ordered {
		if _, ok := accounts[id]; ok {
			continue
		}
		var acct domain.Account
		err := u.tx.GetContext(ctx, &acct, query, id)
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to lock account")
		}
		accounts[id] = &acct
	}
	return accounts, nil
}

func (u *unitOfWork) SaveAccount(ctx context.Context, acct *domain.Account) error {
	acct.UpdatedAt = time.Now().UTC()
	_, err := u.tx.NamedExecContext(ctx, saveAccountQuery, acct)
	return errors.Wrap(err, "failed to save account")
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, u.tx, tx)
}

func (u *unitOfWork) Commit() error {
	u.done = true
	if err := u.tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return errors.Wrap(errors.ErrProcessingFailure, "serialization conflict")
		}
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errors.Wrap(err, "failed to roll back transaction")
	}
	return nil
}

// isSerializationFailure reports Postgres serialization or deadlock aborts,
// which the caller surfaces as a retryable processing failure.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// Health reports store readiness by pinging the database.
type Health struct {
	db *sqlx.DB
}

func NewHealth(db *sqlx.DB) *Health {
	return &Health{db: db}
}

func (h *Health) Ready(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return errors.ErrStoreUnavailable
	}
	return nil
}
