package visits

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/payments"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReconcilePaidCreatesShortfallCash(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		VisitID: 7,
		Price:   dec("2500"),
		Outcome: OutcomePaid,
		ActorID: 3,
		Now:     time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	require.Empty(t, plan.ConvertToCash)

	p := plan.Create[0]
	require.Equal(t, payments.MethodCash, p.Method)
	require.Equal(t, payments.StatusPaid, p.Status)
	require.True(t, dec("2500").Equal(p.AmountPaid))
	require.NotNil(t, p.PaidAt)
	require.Equal(t, int64(3), p.CreatedBy)
	require.Equal(t, appointments.PaymentPaid, plan.Projection)
}

func TestReconcilePaidWithPriorPaymentsCoversOnlyShortfall(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		VisitID: 7,
		Price:   dec("2500"),
		Existing: []payments.Payment{
			{ID: 1, AmountPaid: dec("1000"), Method: payments.MethodCash, Status: payments.StatusPaid},
		},
		Outcome: OutcomePaid,
		Now:     time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	require.True(t, dec("1500").Equal(plan.Create[0].AmountPaid))
}

func TestReconcilePaidFullyCoveredCreatesNothing(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		Price: dec("2500"),
		Existing: []payments.Payment{
			{ID: 1, AmountPaid: dec("2500"), Method: payments.MethodMaya, Status: payments.StatusPaid},
		},
		Outcome: OutcomePaid,
		Now:     time.Now(),
	})
	require.NoError(t, err)
	require.Empty(t, plan.Create)
	require.Empty(t, plan.ConvertToCash)
	require.Equal(t, appointments.PaymentPaid, plan.Projection)
}

func TestReconcileHMOChargesFullPriceRegardless(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		VisitID: 7,
		Price:   dec("2500"),
		Existing: []payments.Payment{
			{ID: 1, AmountPaid: dec("1000"), Method: payments.MethodCash, Status: payments.StatusPaid},
		},
		Outcome: OutcomeHMOFullyCovered,
		Now:     time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	require.Equal(t, payments.MethodHMO, plan.Create[0].Method)
	require.True(t, dec("2500").Equal(plan.Create[0].AmountPaid))
	require.Equal(t, appointments.PaymentPaid, plan.Projection)
}

func TestReconcilePartialRequiresPositiveAmount(t *testing.T) {
	_, err := ReconcilePayments(ReconcileInput{
		Price:   dec("2500"),
		Outcome: OutcomePartial,
		Now:     time.Now(),
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	plan, err := ReconcilePayments(ReconcileInput{
		Price:        dec("2500"),
		Outcome:      OutcomePartial,
		OnsiteAmount: dec("800"),
		Now:          time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	require.Equal(t, payments.MethodCash, plan.Create[0].Method)
	require.True(t, dec("800").Equal(plan.Create[0].AmountPaid))
}

func TestReconcileMayaToCashConvertsInPlace(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		Price: dec("2500"),
		Existing: []payments.Payment{
			{ID: 41, AmountDue: dec("2500"), Method: payments.MethodMaya, Status: payments.StatusPending},
		},
		Outcome:      OutcomeUnpaid,
		MethodChange: MethodChangeMayaToCash,
		Now:          time.Now(),
	})
	require.NoError(t, err)
	require.Empty(t, plan.Create)
	require.Equal(t, []int64{41}, plan.ConvertToCash)
}

func TestReconcileMayaToCashWithoutPendingMayaFails(t *testing.T) {
	_, err := ReconcilePayments(ReconcileInput{
		Price: dec("2500"),
		Existing: []payments.Payment{
			{ID: 41, AmountDue: dec("2500"), Method: payments.MethodMaya, Status: payments.StatusPaid},
		},
		Outcome:      OutcomeUnpaid,
		MethodChange: MethodChangeMayaToCash,
		Now:          time.Now(),
	})
	require.ErrorIs(t, err, ErrNoPendingPayment)
}

func TestReconcileUnpaidWithoutChangeIsNoop(t *testing.T) {
	plan, err := ReconcilePayments(ReconcileInput{
		Price:   dec("2500"),
		Outcome: OutcomeUnpaid,
		Now:     time.Now(),
	})
	require.NoError(t, err)
	require.Empty(t, plan.Create)
	require.Empty(t, plan.ConvertToCash)
	require.Equal(t, appointments.PaymentUnpaid, plan.Projection)
}

func TestReconcileUnknownOutcome(t *testing.T) {
	_, err := ReconcilePayments(ReconcileInput{Outcome: DeclaredOutcome("refunded"), Now: time.Now()})
	require.ErrorIs(t, err, ErrUnknownOutcome)
}
