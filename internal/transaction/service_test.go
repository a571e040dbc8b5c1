package transaction

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"corebank/internal/domain"
	"corebank/pkg/errors"
	"corebank/pkg/logger"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if tx := args.Get(0); tx != nil {
		return tx.(*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if txs := args.Get(0); txs != nil {
		return txs.([]*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FindFiltered(ctx context.Context, f Filter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, f)
	if txs := args.Get(0); txs != nil {
		return txs.([]*domain.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountReader struct {
	mock.Mock
}

func (m *mockAccountReader) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if acct := args.Get(0); acct != nil {
		return acct.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountReader) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	args := m.Called(ctx, userID)
	if accts := args.Get(0); accts != nil {
		return accts.([]*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func strptr(s string) *string { return &s }

func TestGetTransaction_ParticipantAccess(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	owner := uuid.New()
	srcID := uuid.New()
	tx := &domain.Transaction{ID: uuid.New(), SourceAccountID: &srcID}
	repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
	accounts.On("FindByID", mock.Anything, srcID).Return(&domain.Account{ID: srcID, UserID: owner}, nil)

	got, err := svc.GetTransaction(context.Background(), tx.ID, domain.Principal{ID: owner})
	require.NoError(t, err)
	assert.Equal(t, tx, got)

	_, err = svc.GetTransaction(context.Background(), tx.ID, domain.Principal{ID: uuid.New()})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	_, err = svc.GetTransaction(context.Background(), tx.ID, domain.Principal{ID: uuid.New(), IsAdmin: true})
	assert.NoError(t, err)
}

func TestGetTransaction_StoreFaultIsNotDenial(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	srcID := uuid.New()
	tx := &domain.Transaction{ID: uuid.New(), SourceAccountID: &srcID}
	repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
	accounts.On("FindByID", mock.Anything, srcID).Return(nil, errors.ErrStoreUnavailable)

	_, err := svc.GetTransaction(context.Background(), tx.ID, domain.Principal{ID: uuid.New()})
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, errors.ErrUnauthorized)
}

func TestGetTransaction_DeletedLegSkipped(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	owner := uuid.New()
	srcID := uuid.New()
	dstID := uuid.New()
	tx := &domain.Transaction{ID: uuid.New(), SourceAccountID: &srcID, DestinationAccountID: &dstID}
	repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
	accounts.On("FindByID", mock.Anything, srcID).Return(nil, errors.ErrAccountNotFound)
	accounts.On("FindByID", mock.Anything, dstID).Return(&domain.Account{ID: dstID, UserID: owner}, nil)

	got, err := svc.GetTransaction(context.Background(), tx.ID, domain.Principal{ID: owner})
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestGetAccountTransactions_OwnerOnly(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	owner := uuid.New()
	acct := &domain.Account{ID: uuid.New(), UserID: owner}
	accounts.On("FindByID", mock.Anything, acct.ID).Return(acct, nil)

	_, err := svc.GetAccountTransactions(context.Background(), acct.ID, domain.Principal{ID: uuid.New()}, 10, 0)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	repo.On("FindByAccount", mock.Anything, acct.ID, 10, 0).Return([]*domain.Transaction{}, nil)
	_, err = svc.GetAccountTransactions(context.Background(), acct.ID, domain.Principal{ID: owner}, 10, 0)
	assert.NoError(t, err)
}

func TestList_NonAdminRestrictedToOwnAccounts(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	caller := uuid.New()
	owned := &domain.Account{ID: uuid.New(), UserID: caller}
	accounts.On("FindByUserID", mock.Anything, caller).Return([]*domain.Account{owned}, nil)

	// Asking for a foreign account is refused outright.
	_, err := svc.List(context.Background(), domain.Principal{ID: caller}, Filter{
		AccountIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	// An empty filter is scoped to the caller's accounts.
	repo.On("FindFiltered", mock.Anything, mock.MatchedBy(func(f Filter) bool {
		return len(f.AccountIDs) == 1 && f.AccountIDs[0] == owned.ID
	})).Return([]*domain.Transaction{}, nil)

	_, err = svc.List(context.Background(), domain.Principal{ID: caller}, Filter{})
	assert.NoError(t, err)
}

func TestList_NoAccountsReturnsEmpty(t *testing.T) {
	repo := new(mockRepository)
	accounts := new(mockAccountReader)
	svc := NewService(repo, accounts, logger.NewNop())

	caller := uuid.New()
	accounts.On("FindByUserID", mock.Anything, caller).Return([]*domain.Account{}, nil)

	txs, err := svc.List(context.Background(), domain.Principal{ID: caller}, Filter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	repo.AssertNotCalled(t, "FindFiltered", mock.Anything, mock.Anything)
}

func TestUpdate_AdminOnly(t *testing.T) {
	svc := NewService(new(mockRepository), new(mockAccountReader), logger.NewNop())

	_, err := svc.Update(context.Background(), uuid.New(), domain.Principal{ID: uuid.New()}, &UpdateRequest{
		Description: strptr("tweak"),
	})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestUpdate_StatusTransitions(t *testing.T) {
	cases := []struct {
		from domain.TransactionStatus
		to   string
		ok   bool
	}{
		{domain.TransactionStatusPending, "processing", true},
		{domain.TransactionStatusPending, "completed", true},
		{domain.TransactionStatusPending, "cancelled", true},
		{domain.TransactionStatusProcessing, "completed", true},
		{domain.TransactionStatusProcessing, "pending", false},
		{domain.TransactionStatusPendingExternal, "completed", true},
		{domain.TransactionStatusPendingExternal, "failed", true},
		{domain.TransactionStatusCompleted, "reversed", true},
		{domain.TransactionStatusCompleted, "pending", false},
		{domain.TransactionStatusFailed, "completed", false},
		{domain.TransactionStatusReversed, "completed", false},
	}

	admin := domain.Principal{ID: uuid.New(), IsAdmin: true}
	for _, tc := range cases {
		repo := new(mockRepository)
		svc := NewService(repo, new(mockAccountReader), logger.NewNop())

		tx := &domain.Transaction{ID: uuid.New(), Status: tc.from}
		repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
		repo.On("Update", mock.Anything, tx).Return(nil)

		_, err := svc.Update(context.Background(), tx.ID, admin, &UpdateRequest{Status: strptr(tc.to)})
		if tc.ok {
			assert.NoError(t, err, "%s -> %s should be allowed", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, errors.ErrInvalidTransition, "%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestUpdate_SameStatusIsNoop(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockAccountReader), logger.NewNop())

	tx := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusFailed}
	repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
	repo.On("Update", mock.Anything, tx).Return(nil)

	got, err := svc.Update(context.Background(), tx.ID, domain.Principal{ID: uuid.New(), IsAdmin: true}, &UpdateRequest{
		Status: strptr("failed"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, got.Status)
}

func TestCreateManualEntry(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, new(mockAccountReader), logger.NewNop())
	admin := domain.Principal{ID: uuid.New(), IsAdmin: true}

	_, err := svc.CreateManualEntry(context.Background(), domain.Principal{ID: uuid.New()}, &ManualEntryRequest{
		Amount:   decimal.NewFromInt(10),
		Currency: "NGN",
		Type:     "fee",
	})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	_, err = svc.CreateManualEntry(context.Background(), admin, &ManualEntryRequest{
		Amount:   decimal.NewFromInt(-10),
		Currency: "NGN",
		Type:     "fee",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)

	_, err = svc.CreateManualEntry(context.Background(), admin, &ManualEntryRequest{
		Amount:   decimal.NewFromInt(10),
		Currency: "NGN",
		Type:     "transfer",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidTransactionType)

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	tx, err := svc.CreateManualEntry(context.Background(), admin, &ManualEntryRequest{
		Amount:   decimal.NewFromInt(10),
		Currency: "ngn",
		Type:     "manual_entry",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeManualEntry, tx.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, "NGN", tx.Currency)
}
