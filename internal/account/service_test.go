package account

import (
	"context"
	"sync"
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

func (m *mockRepository) Create(ctx context.Context, acct *domain.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *mockRepository) SaveLimits(ctx context.Context, acct *domain.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *mockRepository) SaveStatus(ctx context.Context, acct *domain.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if acct := args.Get(0); acct != nil {
		return acct.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	args := m.Called(ctx, number)
	if acct := args.Get(0); acct != nil {
		return acct.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	args := m.Called(ctx, userID)
	if accts := args.Get(0); accts != nil {
		return accts.([]*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, Defaults{
		BalanceLimit:    dec("1000000"),
		DailyDebitLimit: dec("100000"),
	}, logger.NewNop())
}

func TestResolve_IDTakesPrecedence(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	id := uuid.New()
	want := &domain.Account{ID: id}
	repo.On("FindByID", mock.Anything, id).Return(want, nil)

	got, err := svc.Resolve(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything)
}

func TestResolve_FallsBackToNumber(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	id := uuid.New()
	want := &domain.Account{ID: uuid.New(), AccountNumber: id.String()}
	repo.On("FindByID", mock.Anything, id).Return(nil, errors.ErrAccountNotFound)
	repo.On("FindByNumber", mock.Anything, id.String()).Return(want, nil)

	got, err := svc.Resolve(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_PlainNumberSkipsIDLookup(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	want := &domain.Account{ID: uuid.New(), AccountNumber: "0123456789"}
	repo.On("FindByNumber", mock.Anything, "0123456789").Return(want, nil)

	got, err := svc.Resolve(context.Background(), "0123456789")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestResolve_NotFoundCarriesIdentifier(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	repo.On("FindByNumber", mock.Anything, "9999999999").Return(nil, errors.ErrAccountNotFound)

	_, err := svc.Resolve(context.Background(), "9999999999")
	require.ErrorIs(t, err, errors.ErrAccountNotFound)

	var nfe *errors.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "9999999999", nfe.Identifier)
}

func TestCreateAccount_Defaults(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	var created *domain.Account
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Account)
	}).Return(nil)

	userID := uuid.New()
	acct, err := svc.CreateAccount(context.Background(), &CreateAccountRequest{
		UserID: userID,
		Type:   "savings",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, userID, acct.UserID)
	assert.Equal(t, domain.AccountTypeSavings, acct.Type)
	assert.Equal(t, "NGN", acct.Currency.Code)
	assert.True(t, acct.Balance.IsZero())
	assert.Len(t, acct.AccountNumber, 10)
	assert.Equal(t, domain.AccountStatusUnrestricted, acct.Status)
	require.NotNil(t, acct.BalanceLimit)
	assert.True(t, acct.BalanceLimit.Equal(dec("1000000")))
	require.NotNil(t, acct.DailyDebitLimit)
	assert.True(t, acct.DailyDebitLimit.Equal(dec("100000")))
}

func TestCreateAccount_InvalidType(t *testing.T) {
	svc := newTestService(new(mockRepository))

	_, err := svc.CreateAccount(context.Background(), &CreateAccountRequest{
		UserID: uuid.New(),
		Type:   "checking",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidAccountType)
}

func TestCreateAccount_UnsupportedCurrency(t *testing.T) {
	svc := newTestService(new(mockRepository))

	_, err := svc.CreateAccount(context.Background(), &CreateAccountRequest{
		UserID:       uuid.New(),
		Type:         "current",
		CurrencyCode: "EUR",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidCurrency)
}

func TestCreateAccount_NegativeLimitRejected(t *testing.T) {
	svc := newTestService(new(mockRepository))

	neg := dec("-1")
	_, err := svc.CreateAccount(context.Background(), &CreateAccountRequest{
		UserID:       uuid.New(),
		Type:         "savings",
		BalanceLimit: &neg,
	})
	assert.ErrorIs(t, err, errors.ErrInvalidLimitValue)
}

func TestGetAccount_OwnerOnly(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	owner := uuid.New()
	acct := &domain.Account{ID: uuid.New(), UserID: owner}
	repo.On("FindByID", mock.Anything, acct.ID).Return(acct, nil)

	_, err := svc.GetAccount(context.Background(), acct.ID.String(), domain.Principal{ID: uuid.New()})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	got, err := svc.GetAccount(context.Background(), acct.ID.String(), domain.Principal{ID: owner})
	require.NoError(t, err)
	assert.Equal(t, acct, got)

	got, err = svc.GetAccount(context.Background(), acct.ID.String(), domain.Principal{ID: uuid.New(), IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, acct, got)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), uuid.NewString(), domain.Principal{ID: uuid.New()}, "frozen", "fraud hold")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	acct := &domain.Account{ID: uuid.New(), UserID: uuid.New()}
	repo.On("FindByID", mock.Anything, acct.ID).Return(acct, nil)
	repo.On("SaveStatus", mock.Anything, acct).Return(nil)

	got, err := svc.UpdateStatus(context.Background(), acct.ID.String(), domain.Principal{ID: uuid.New(), IsAdmin: true}, "frozen", "fraud hold")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusFrozen, got.Status)
	assert.Equal(t, "fraud hold", got.StatusReason)
}

func TestUpdateLimits_NegativeRejected(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	owner := uuid.New()
	acct := &domain.Account{ID: uuid.New(), UserID: owner}
	repo.On("FindByID", mock.Anything, acct.ID).Return(acct, nil)

	neg := dec("-5")
	_, err := svc.UpdateLimits(context.Background(), acct.ID.String(), domain.Principal{ID: owner}, &UpdateLimitsRequest{
		DailyDebitLimit: &neg,
	})
	assert.ErrorIs(t, err, errors.ErrInvalidLimitValue)
	repo.AssertNotCalled(t, "SaveLimits", mock.Anything, mock.Anything)
}

// columnFakeRepo persists each save the way the SQL layer does: SaveLimits and
// SaveStatus land only their own columns, never the money columns. When
// debitOnRead is set, a debit of that amount commits right after the next
// read, modelling a transfer racing the admin path's read-modify-write.
type columnFakeRepo struct {
	mu          sync.Mutex
	acct        domain.Account
	debitOnRead *decimal.Decimal
}

func (f *columnFakeRepo) Create(ctx context.Context, acct *domain.Account) error { return nil }

func (f *columnFakeRepo) SaveLimits(ctx context.Context, acct *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acct.BalanceLimit = acct.BalanceLimit
	f.acct.DailyDebitLimit = acct.DailyDebitLimit
	f.acct.UpdatedAt = acct.UpdatedAt
	return nil
}

func (f *columnFakeRepo) SaveStatus(ctx context.Context, acct *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acct.Status = acct.Status
	f.acct.StatusReason = acct.StatusReason
	f.acct.UpdatedAt = acct.UpdatedAt
	return nil
}

func (f *columnFakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.acct
	if f.debitOnRead != nil {
		f.acct.Balance = f.acct.Balance.Sub(*f.debitOnRead)
		f.acct.DailyDebitTotal = f.acct.DailyDebitTotal.Add(*f.debitOnRead)
		f.debitOnRead = nil
	}
	return &snapshot, nil
}

func (f *columnFakeRepo) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return f.FindByID(ctx, uuid.Nil)
}

func (f *columnFakeRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	return nil, nil
}

func (f *columnFakeRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *columnFakeRepo) stored() domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acct
}

func TestUpdateLimits_DoesNotRevertConcurrentDebit(t *testing.T) {
	owner := uuid.New()
	limit := dec("1000000")
	debit := dec("200")
	repo := &columnFakeRepo{
		acct: domain.Account{
			ID:              uuid.New(),
			UserID:          owner,
			Balance:         dec("1000"),
			BalanceLimit:    &limit,
			DailyDebitLimit: &limit,
			Status:          domain.AccountStatusUnrestricted,
		},
		debitOnRead: &debit,
	}
	svc := newTestService(repo)

	newLimit := dec("500")
	_, err := svc.UpdateLimits(context.Background(), repo.acct.ID.String(), domain.Principal{ID: owner}, &UpdateLimitsRequest{
		DailyDebitLimit: &newLimit,
	})
	require.NoError(t, err)

	got := repo.stored()
	assert.True(t, got.Balance.Equal(dec("800")), "committed debit must survive a limits update; got balance %s", got.Balance)
	assert.True(t, got.DailyDebitTotal.Equal(dec("200")))
	assert.True(t, got.DailyDebitLimit.Equal(newLimit))
}

func TestUpdateStatus_DoesNotRevertConcurrentDebit(t *testing.T) {
	limit := dec("1000000")
	debit := dec("200")
	repo := &columnFakeRepo{
		acct: domain.Account{
			ID:              uuid.New(),
			UserID:          uuid.New(),
			Balance:         dec("1000"),
			BalanceLimit:    &limit,
			DailyDebitLimit: &limit,
			Status:          domain.AccountStatusUnrestricted,
		},
		debitOnRead: &debit,
	}
	svc := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), repo.acct.ID.String(), domain.Principal{ID: uuid.New(), IsAdmin: true}, "frozen", "fraud hold")
	require.NoError(t, err)

	got := repo.stored()
	assert.True(t, got.Balance.Equal(dec("800")), "committed debit must survive a status update; got balance %s", got.Balance)
	assert.Equal(t, domain.AccountStatusFrozen, got.Status)
}

func TestDeleteAccount_RequiresZeroBalance(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	owner := uuid.New()
	acct := &domain.Account{
		ID:       uuid.New(),
		UserID:   owner,
		Balance:  dec("25"),
		Currency: domain.Currency{Code: "NGN"},
	}
	repo.On("FindByID", mock.Anything, acct.ID).Return(acct, nil)

	err := svc.DeleteAccount(context.Background(), acct.ID.String(), domain.Principal{ID: owner})
	assert.ErrorIs(t, err, errors.ErrAccountStatus)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	acct.Balance = decimal.Zero
	repo.On("Delete", mock.Anything, acct.ID).Return(nil)
	require.NoError(t, svc.DeleteAccount(context.Background(), acct.ID.String(), domain.Principal{ID: owner}))
}
