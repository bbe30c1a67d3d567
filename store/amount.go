// Amounts are integer micro USDT (6 decimals, the TRC20 token convention).
// Every order gets a unique "actual amount" so a single receiving address can
// tell payers apart: the requested amount is rounded up to a free slot on a
// grid spaced wider than twice the match tolerance, so tolerance windows of
// two live orders can never overlap.

package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

const (
	// MicroPerUSDT is the TRC20 USDT scaling factor.
	MicroPerUSDT = 1_000_000

	// MatchTolerance is the allowed absolute deviation between the expected
	// and the observed transfer amount, 0.0001 USDT.
	MatchTolerance int64 = 100

	// slotStep is the allocation grid, 0.001 USDT. Grid spacing exceeds
	// 2*MatchTolerance, so the tolerance windows of two live orders never
	// overlap, and round requested amounts stay on the grid unchanged.
	slotStep int64 = 1000
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal USDT string ("25.0") to micro USDT.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -6 {
		return 0, fmt.Errorf("%w: %q has more than 6 decimal places", ErrInvalidAmount, s)
	}
	micro := d.Shift(6)
	if !micro.IsInteger() || micro.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return micro.IntPart(), nil
}

// FormatAmount renders micro USDT as a decimal USDT string.
func FormatAmount(micro int64) string {
	return decimal.New(micro, -6).String()
}

// AmountMatches reports whether an observed transfer amount settles an order
// expecting the given actual amount.
func AmountMatches(expected, observed int64) bool {
	diff := expected - observed
	if diff < 0 {
		diff = -diff
	}
	return diff <= MatchTolerance
}

// IsRoundAmount reports whether a transfer is a whole number of USDT. Round
// transfers that match no order are flagged to the operator as a likely
// mis-sent payment.
func IsRoundAmount(micro int64) bool {
	return micro > 0 && micro%MicroPerUSDT == 0
}

// amountAllocator hands out unique actual amounts for pending orders.
type amountAllocator struct {
	mu    sync.Mutex
	slots *IntervalSet
}

func newAmountAllocator() *amountAllocator {
	return &amountAllocator{slots: NewIntervalSet()}
}

// Allocate returns the smallest free on-grid amount >= the requested amount
// and marks it taken.
func (a *amountAllocator) Allocate(amount int64) int64 {
	base := (amount + slotStep - 1) / slotStep // round up to the grid

	a.mu.Lock()
	defer a.mu.Unlock()

	slot := a.slots.NextMissing(base)
	a.slots.Add(slot)
	return slot * slotStep
}

// Release frees the slot behind an actual amount so it can be reused.
// Amounts that are off the grid (from older records) are ignored.
func (a *amountAllocator) Release(actual int64) {
	if actual%slotStep != 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots.Remove(actual / slotStep)
}

// Taken reports whether an actual amount is currently assigned to an order.
func (a *amountAllocator) Taken(actual int64) bool {
	if actual%slotStep != 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slots.Contains(actual / slotStep)
}

// Reserve marks the slot behind an existing order's actual amount as taken,
// used when restoring pending orders after a restart.
func (a *amountAllocator) Reserve(actual int64) {
	if actual%slotStep != 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots.Add(actual / slotStep)
}
