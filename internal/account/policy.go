package account

import (
	"time"

	"github.com/shopspring/decimal"

	"corebank/internal/domain"
	"corebank/pkg/errors"
)

// The limit policy is pure: every function here reads an account snapshot and
// returns a decision without touching storage. Mutations (ApplyDebit,
// ApplyCredit) only edit the snapshot; persisting it is the caller's job.

// Today returns the current UTC calendar day, truncated to midnight.
func Today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// sameDay compares calendar days in UTC.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// EffectiveDailyTotal is the daily debit usage after applying the date
// rollover rule: the stored running total counts only if the last debit
// happened today. All limit comparisons use this value, never the raw field.
func EffectiveDailyTotal(acct *domain.Account, today time.Time) decimal.Decimal {
	if acct.LastDebitDate == nil || !sameDay(*acct.LastDebitDate, today) {
		return decimal.Zero
	}
	return acct.DailyDebitTotal
}

// CheckDebit decides whether a debit of amount is admissible. Checks run in a
// fixed order: account status, balance sufficiency, then daily limit.
func CheckDebit(acct *domain.Account, amount decimal.Decimal, today time.Time) error {
	if acct.Status != domain.AccountStatusUnrestricted {
		return &errors.AccountStatusError{
			AccountID: acct.ID.String(),
			Operation: "debit",
			Status:    string(acct.Status),
			Reason:    acct.StatusReason,
		}
	}

	if acct.Balance.LessThan(amount) {
		return &errors.InsufficientFundsError{
			AccountID: acct.ID.String(),
			Needed:    amount,
			Available: acct.Balance,
		}
	}

	if acct.DailyDebitLimit != nil {
		spent := EffectiveDailyTotal(acct, today)
		if spent.Add(amount).GreaterThan(*acct.DailyDebitLimit) {
			return &errors.DailyLimitExceededError{
				AccountID:  acct.ID.String(),
				Attempted:  amount,
				Limit:      *acct.DailyDebitLimit,
				DailyTotal: spent,
			}
		}
	}

	return nil
}

// CheckCredit decides whether a credit of amount is admissible. A restricted
// account may still receive funds; only frozen blocks the credit leg.
func CheckCredit(acct *domain.Account, amount decimal.Decimal) error {
	if acct.Status == domain.AccountStatusFrozen {
		return &errors.AccountStatusError{
			AccountID: acct.ID.String(),
			Operation: "credit",
			Status:    string(acct.Status),
			Reason:    "account is frozen and cannot receive funds",
		}
	}

	if acct.BalanceLimit != nil {
		if acct.Balance.Add(amount).GreaterThan(*acct.BalanceLimit) {
			return &errors.BalanceLimitExceededError{
				AccountID:      acct.ID.String(),
				Attempted:      amount,
				Limit:          *acct.BalanceLimit,
				CurrentBalance: acct.Balance,
			}
		}
	}

	return nil
}

// ApplyDebit mutates the snapshot for a debit that already passed CheckDebit.
// The rollover reset and the increment land together so no intermediate state
// (reset total without the new debit) is ever observable.
func ApplyDebit(acct *domain.Account, amount decimal.Decimal, today time.Time) {
	acct.Balance = acct.Balance.Sub(amount)
	acct.DailyDebitTotal = EffectiveDailyTotal(acct, today).Add(amount)
	acct.LastDebitDate = &today
	acct.UpdatedAt = time.Now().UTC()
}

// ApplyCredit mutates the snapshot for a credit that already passed CheckCredit.
func ApplyCredit(acct *domain.Account, amount decimal.Decimal) {
	acct.Balance = acct.Balance.Add(amount)
	acct.UpdatedAt = time.Now().UTC()
}
