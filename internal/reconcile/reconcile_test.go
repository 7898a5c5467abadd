package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennywise/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	reads    int
	writes   int
	setErr   error
	// beforeRead runs before each GetAccount, standing in for another writer.
	beforeRead func()
}

func newFakeStore(id string, balance string) *fakeStore {
	return &fakeStore{balances: map[string]decimal.Decimal{id: decimal.RequireFromString(balance)}}
}

func (f *fakeStore) GetAccount(_ context.Context, _, id string) (*models.Account, error) {
	if f.beforeRead != nil {
		f.beforeRead()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	b, ok := f.balances[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.Account{Base: models.Base{ID: id}, Balance: b}, nil
}

func (f *fakeStore) SetAccountBalance(_ context.Context, _, id string, balance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.writes++
	f.balances[id] = balance
	return nil
}

func (f *fakeStore) balance(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id]
}

func day(d int) models.Date {
	return models.NewDate(time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTracker_Plan(t *testing.T) {
	t.Run("empty batch does nothing even with a statement balance", func(t *testing.T) {
		var tr Tracker
		tr.ObserveBalance(day(5), dec("100"))
		assert.Equal(t, StrategyNone, tr.Plan().Strategy)
	})

	t.Run("statement balance is absolute", func(t *testing.T) {
		var tr Tracker
		tr.Include(day(3), dec("-4.50"))
		tr.ObserveBalance(day(3), dec("995.50"))
		tr.ObserveBalance(day(1), dec("1000"))

		plan := tr.Plan()
		assert.Equal(t, StrategyAbsolute, plan.Strategy)
		assert.True(t, plan.Target.Equal(dec("995.50")))
	})

	t.Run("net without balance is incremental", func(t *testing.T) {
		var tr Tracker
		tr.Include(day(2), dec("100"))
		tr.Include(day(4), dec("-30"))
		tr.Include(day(3), dec("-20"))

		plan := tr.Plan()
		assert.Equal(t, StrategyIncremental, plan.Strategy)
		assert.True(t, plan.Delta.Equal(dec("50")))
		assert.Equal(t, 3, tr.Included())
		assert.Equal(t, "2024-01-04", tr.LatestDate().String())
	})

	t.Run("zero net leaves balance alone", func(t *testing.T) {
		var tr Tracker
		tr.Include(day(2), dec("25"))
		tr.Include(day(2), dec("-25"))
		assert.Equal(t, StrategyNone, tr.Plan().Strategy)
	})

	t.Run("ties on date go to the later observation", func(t *testing.T) {
		var tr Tracker
		tr.ObserveBalance(day(7), dec("10"))
		tr.ObserveBalance(day(7), dec("20"))
		b, ok := tr.RunningBalance()
		require.True(t, ok)
		assert.True(t, b.Equal(dec("20")))
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("absolute overwrites without reading", func(t *testing.T) {
		store := newFakeStore("acc", "500")
		out, err := Apply(ctx, store, "u", "acc", Plan{Strategy: StrategyAbsolute, Target: dec("1234.56")})
		require.NoError(t, err)
		assert.Equal(t, StrategyAbsolute, out.Strategy)
		assert.True(t, store.balance("acc").Equal(dec("1234.56")))
		assert.Equal(t, 0, store.reads)
	})

	t.Run("incremental uses the balance at write time", func(t *testing.T) {
		store := newFakeStore("acc", "1000")
		plan := Plan{Strategy: StrategyIncremental, Delta: dec("-40")}

		// Someone else moves the balance after the plan is made.
		store.beforeRead = func() {
			store.mu.Lock()
			store.balances["acc"] = dec("700")
			store.mu.Unlock()
			store.beforeRead = nil
		}

		out, err := Apply(ctx, store, "u", "acc", plan)
		require.NoError(t, err)
		assert.True(t, out.Balance.Equal(dec("660")), "got %s", out.Balance)
		assert.True(t, store.balance("acc").Equal(dec("660")))
	})

	t.Run("none touches nothing", func(t *testing.T) {
		store := newFakeStore("acc", "1")
		_, err := Apply(ctx, store, "u", "acc", Plan{Strategy: StrategyNone})
		require.NoError(t, err)
		assert.Equal(t, 0, store.reads+store.writes)
	})

	t.Run("write failure is returned", func(t *testing.T) {
		store := newFakeStore("acc", "1")
		boom := errors.New("boom")
		store.setErr = boom
		_, err := Apply(ctx, store, "u", "acc", Plan{Strategy: StrategyIncremental, Delta: dec("1")})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("read failure stops before writing", func(t *testing.T) {
		store := newFakeStore("acc", "1")
		_, err := ApplyDelta(ctx, store, "u", "missing", dec("1"))
		assert.Error(t, err)
		assert.Equal(t, 0, store.writes)
	})
}

func TestApplyDelta_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	store := newFakeStore("acc", "0")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ApplyDelta(ctx, store, "u", "acc", dec("2"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, store.balance("acc").Equal(dec("100")), "got %s", store.balance("acc"))
}
