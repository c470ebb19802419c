// Package ledger holds the pure money rules of the system: how much of an
// expense counts as spent, how balances per funding source are derived, and
// how vendor payments move through material expenses. Nothing here touches
// storage.
package ledger

import (
	"errors"

	"buildledger/internal/model"
)

// Source is an independent pool of money.
type Source string

const (
	SourceBank    Source = "bank"
	SourceLocker1 Source = "locker1"
	SourceLocker2 Source = "locker2"
)

// Sources lists every funding source in reporting order.
var Sources = []Source{SourceBank, SourceLocker1, SourceLocker2}

var (
	ErrInvalidSource     = errors.New("mode must be bank, or cash with cash_location locker1 or locker2")
	ErrNonPositiveAmount = errors.New("amount must be greater than 0")
)

// SourceOf resolves the funding source named by a mode and cash location.
func SourceOf(f model.FundingDetails) (Source, error) {
	switch f.Mode {
	case model.ModeBank:
		return SourceBank, nil
	case model.ModeCash:
		switch f.CashLocation {
		case model.CashLocker1:
			return SourceLocker1, nil
		case model.CashLocker2:
			return SourceLocker2, nil
		}
	}
	return "", ErrInvalidSource
}

// Matches reports whether money declared with f flows through s.
func (s Source) Matches(f model.FundingDetails) bool {
	if s == SourceBank {
		return f.IsBank()
	}
	return f.InLocker(string(s))
}

func (s Source) valid() bool {
	return s == SourceBank || s == SourceLocker1 || s == SourceLocker2
}
