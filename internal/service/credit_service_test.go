package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/testutil"
)

func TestCreditService_AppendAndBalance(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	clock := testutil.FixedClock{T: testutil.Date(2025, time.September, 15)}
	svc := NewCreditService(f.Credit, clock)
	ctx := context.Background()

	err := svc.Append(ctx, f.ClientID, "A-101", domain.CreditEntry{
		Amount: 25000,
		Type:   domain.CreditAdded,
		Source: domain.CreditSourceManual,
	})
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, f.ClientID, "A-101")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), balance)

	// entries get an ID and timestamp when the caller leaves them zero
	history, err := svc.History(ctx, f.ClientID, "A-101", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, clock.T, history[0].Timestamp)
}

func TestCreditService_RejectsOverdraw(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedCredit(t, "A-101", 10000, testutil.Date(2025, time.July, 1))
	svc := NewCreditService(f.Credit, testutil.FixedClock{T: testutil.Date(2025, time.September, 15)})

	err := svc.Append(context.Background(), f.ClientID, "A-101", domain.CreditEntry{
		Amount: -15000,
		Type:   domain.CreditUsed,
		Source: domain.CreditSourceManual,
	})
	require.ErrorIs(t, err, domain.ErrNegativeBalance)

	var nbe *domain.NegativeBalanceError
	require.True(t, errors.As(err, &nbe))
	assert.Equal(t, int64(10000), nbe.Balance)
	assert.Equal(t, int64(-15000), nbe.Requested)

	// the ledger is untouched
	balance, err := svc.Balance(context.Background(), f.ClientID, "A-101")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)
}

func TestCreditService_BalanceAsOf(t *testing.T) {
	f := testutil.NewFixture(t, "costa-verde")
	f.SeedCredit(t, "A-101", 10000, testutil.Date(2025, time.July, 1))
	svc := NewCreditService(f.Credit, testutil.FixedClock{T: testutil.Date(2025, time.September, 15)})
	ctx := context.Background()

	err := svc.Append(ctx, f.ClientID, "A-101", domain.CreditEntry{
		Amount: 5000,
		Type:   domain.CreditAdded,
		Source: domain.CreditSourceManual,
	})
	require.NoError(t, err)

	before, err := svc.BalanceAsOf(ctx, f.ClientID, "A-101", testutil.Date(2025, time.August, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), before)

	after, err := svc.BalanceAsOf(ctx, f.ClientID, "A-101", testutil.Date(2025, time.September, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(15000), after)
}
