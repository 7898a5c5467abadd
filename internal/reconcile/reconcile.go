// Package reconcile keeps an account's stored balance in step with the
// transactions written against it.
//
// The balance is a mutable scalar, not an aggregate, so every write that
// changes a linked transaction has to push a matching delta to the account.
// Increment-style writes always re-read the account from the store right
// before writing; a balance held in memory may be stale.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"pennywise/internal/models"
)

// BalanceStore is the slice of the record store the reconciler needs.
type BalanceStore interface {
	GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error)
	SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error
}

// Strategy says how an import changes the account balance.
type Strategy string

const (
	// StrategyNone leaves the balance untouched.
	StrategyNone Strategy = "none"
	// StrategyAbsolute overwrites the balance with the statement's own figure.
	StrategyAbsolute Strategy = "absolute"
	// StrategyIncremental adds the batch's net effect to a freshly read balance.
	StrategyIncremental Strategy = "incremental"
)

// Tracker accumulates what a batch of imported rows means for one account.
// The zero value is ready to use.
type Tracker struct {
	net        decimal.Decimal
	included   int
	latestDate models.Date

	balance     *decimal.Decimal
	balanceDate models.Date
}

// Include records a row that is going to be inserted.
func (t *Tracker) Include(date models.Date, effect decimal.Decimal) {
	t.net = t.net.Add(effect)
	t.included++
	if t.latestDate.IsZero() || !date.Before(t.latestDate) {
		t.latestDate = date
	}
}

// ObserveBalance records a statement running balance. Every parsed row's
// balance counts, duplicates included; the latest date wins and a later call
// wins a tie.
func (t *Tracker) ObserveBalance(date models.Date, balance decimal.Decimal) {
	if t.balance == nil || !date.Before(t.balanceDate) {
		b := balance
		t.balance = &b
		t.balanceDate = date
	}
}

// Net is the signed sum of included rows.
func (t *Tracker) Net() decimal.Decimal { return t.net }

// Included is how many rows were recorded with Include.
func (t *Tracker) Included() int { return t.included }

// LatestDate is the most recent date among included rows.
func (t *Tracker) LatestDate() models.Date { return t.latestDate }

// RunningBalance returns the observed statement balance, if any.
func (t *Tracker) RunningBalance() (decimal.Decimal, bool) {
	if t.balance == nil {
		return decimal.Zero, false
	}
	return *t.balance, true
}

// Plan is the chosen balance update for a batch.
type Plan struct {
	Strategy Strategy
	Target   decimal.Decimal
	Delta    decimal.Decimal
}

// Plan picks the strategy. A batch that inserts nothing never moves the
// balance. Otherwise a statement balance wins over the computed net, and a
// zero net with no statement balance leaves the account alone.
func (t *Tracker) Plan() Plan {
	if t.included == 0 {
		return Plan{Strategy: StrategyNone}
	}
	if t.balance != nil {
		return Plan{Strategy: StrategyAbsolute, Target: *t.balance}
	}
	if !t.net.IsZero() {
		return Plan{Strategy: StrategyIncremental, Delta: t.net}
	}
	return Plan{Strategy: StrategyNone}
}

// Outcome reports what Apply did.
type Outcome struct {
	Strategy Strategy
	Balance  decimal.Decimal
}

// Apply executes plan against the account.
func Apply(ctx context.Context, store BalanceStore, userID, accountID string, plan Plan) (Outcome, error) {
	switch plan.Strategy {
	case StrategyAbsolute:
		unlock := lockAccount(accountID)
		defer unlock()
		if err := store.SetAccountBalance(ctx, userID, accountID, plan.Target); err != nil {
			return Outcome{Strategy: plan.Strategy}, fmt.Errorf("set balance: %w", err)
		}
		return Outcome{Strategy: plan.Strategy, Balance: plan.Target}, nil
	case StrategyIncremental:
		balance, err := ApplyDelta(ctx, store, userID, accountID, plan.Delta)
		return Outcome{Strategy: plan.Strategy, Balance: balance}, err
	default:
		return Outcome{Strategy: StrategyNone}, nil
	}
}

// ApplyDelta reads the account's current balance from the store and writes
// back current+delta. It returns the new balance.
func ApplyDelta(ctx context.Context, store BalanceStore, userID, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	unlock := lockAccount(accountID)
	defer unlock()

	account, err := store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	balance := account.Balance.Add(delta)
	if err := store.SetAccountBalance(ctx, userID, accountID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("write balance: %w", err)
	}
	return balance, nil
}

// accountLocks serializes read-modify-write cycles on the same account within
// this process. Writers in other processes can still interleave.
var accountLocks sync.Map

func lockAccount(accountID string) func() {
	v, _ := accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
