package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennywise/internal/models"
	"pennywise/internal/store"
)

type stubLoader struct {
	txs        []models.Transaction
	accounts   []models.Account
	categories []models.Category
	txErr      error
	accountErr error
	calls      int
}

func (l *stubLoader) ListTransactions(context.Context, string, store.TransactionFilter) ([]models.Transaction, error) {
	l.calls++
	return l.txs, l.txErr
}

func (l *stubLoader) ListAccounts(context.Context, string) ([]models.Account, error) {
	return l.accounts, l.accountErr
}

func (l *stubLoader) ListCategories(context.Context, string) ([]models.Category, error) {
	return l.categories, nil
}

func TestState_Reload(t *testing.T) {
	accountID := "acc-1"
	loader := &stubLoader{
		txs:        []models.Transaction{{Base: models.Base{ID: "t1"}}},
		accounts:   []models.Account{{Base: models.Base{ID: accountID}, Name: "Checking"}},
		categories: []models.Category{{Name: "Food"}},
	}
	st := NewState("u1", loader)

	assert.Empty(t, st.Transactions(), "state starts empty")

	require.NoError(t, st.Reload(context.Background()))
	snap := st.Snapshot()
	assert.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Checking", snap.AccountName(&accountID))
	assert.Equal(t, "", snap.AccountName(nil))
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestState_ReloadPartialFailure(t *testing.T) {
	boom := errors.New("store down")
	loader := &stubLoader{
		txs:        []models.Transaction{{Base: models.Base{ID: "t1"}}},
		accounts:   []models.Account{{Name: "stale"}},
		categories: []models.Category{{Name: "Food"}},
		accountErr: boom,
	}
	st := NewState("u1", loader)

	err := st.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, st.Transactions(), 1, "healthy collections still load")
	assert.NotNil(t, st.Accounts())
	assert.Empty(t, st.Accounts(), "failed collection falls back to empty")
	assert.Len(t, st.Categories(), 1)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&stubLoader{})

	a := r.For("alice")
	assert.Same(t, a, r.For("alice"))
	assert.NotSame(t, a, r.For("bob"))

	r.Forget("alice")
	assert.NotSame(t, a, r.For("alice"))
}
