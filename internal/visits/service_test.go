package visits

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/payments"
	"github.com/novadent/novadent/internal/shared"
)

type fakeState struct {
	visits map[int64]Visit
	pays   []payments.Payment
	nextID int64

	stock      map[int64]decimal.Decimal
	thresholds map[int64]decimal.Decimal

	apptStatus  appointments.PaymentStatus
	apptSynced  int
	apptMatched int64
}

func newFakeState() *fakeState {
	return &fakeState{
		visits:      map[int64]Visit{},
		stock:       map[int64]decimal.Decimal{},
		thresholds:  map[int64]decimal.Decimal{},
		nextID:      100,
		apptMatched: 1,
	}
}

func (s *fakeState) clone() *fakeState {
	cp := *s
	cp.visits = map[int64]Visit{}
	for k, v := range s.visits {
		cp.visits[k] = v
	}
	cp.pays = append([]payments.Payment(nil), s.pays...)
	cp.stock = map[int64]decimal.Decimal{}
	for k, v := range s.stock {
		cp.stock[k] = v
	}
	return &cp
}

type fakeRepo struct {
	state *fakeState
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Visit, error) {
	v, ok := r.state.visits[id]
	if !ok {
		return Visit{}, ErrVisitNotFound
	}
	return v, nil
}

func (r *fakeRepo) Create(ctx context.Context, v Visit) (int64, error) {
	r.state.nextID++
	v.ID = r.state.nextID
	r.state.visits[v.ID] = v
	return v.ID, nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Visit, error) {
	var out []Visit
	for _, v := range r.state.visits {
		out = append(out, v)
	}
	return out, nil
}

// WithTx runs fn against a copy of the state and publishes the copy only on
// success, giving the fake real rollback semantics.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.state.clone()
	if err := fn(ctx, &fakeTx{state: staged}); err != nil {
		return err
	}
	*r.state = *staged
	return nil
}

type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) GetForUpdate(ctx context.Context, id int64) (Visit, error) {
	v, ok := t.state.visits[id]
	if !ok {
		return Visit{}, ErrVisitNotFound
	}
	return v, nil
}

func (t *fakeTx) SetCompleted(ctx context.Context, id int64, note Note, endedAt time.Time) error {
	v, ok := t.state.visits[id]
	if !ok {
		return ErrVisitNotFound
	}
	v.Status = StatusCompleted
	v.Note = note
	v.EndedAt = &endedAt
	t.state.visits[id] = v
	return nil
}

func (t *fakeTx) SetRejected(ctx context.Context, id int64, endedAt time.Time) error {
	v, ok := t.state.visits[id]
	if !ok {
		return ErrVisitNotFound
	}
	v.Status = StatusRejected
	v.EndedAt = &endedAt
	t.state.visits[id] = v
	return nil
}

func (t *fakeTx) Inventory() inventory.TxRepository       { return &fakeInvTx{state: t.state} }
func (t *fakeTx) Payments() payments.TxRepository         { return &fakePayTx{state: t.state} }
func (t *fakeTx) Appointments() appointments.TxRepository { return &fakeApptTx{state: t.state} }

type fakePayTx struct {
	state *fakeState
}

func (t *fakePayTx) ListByVisit(ctx context.Context, visitID int64) ([]payments.Payment, error) {
	var out []payments.Payment
	for _, p := range t.state.pays {
		if p.VisitID == visitID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *fakePayTx) Insert(ctx context.Context, p payments.Payment) (int64, error) {
	t.state.nextID++
	p.ID = t.state.nextID
	t.state.pays = append(t.state.pays, p)
	return p.ID, nil
}

func (t *fakePayTx) ConvertToCash(ctx context.Context, paymentID int64, paidAt time.Time) error {
	for i, p := range t.state.pays {
		if p.ID == paymentID {
			p.Method = payments.MethodCash
			p.Status = payments.StatusPaid
			p.AmountPaid = p.AmountDue
			p.PaidAt = &paidAt
			t.state.pays[i] = p
			return nil
		}
	}
	return payments.ErrPaymentNotFound
}

type fakeApptTx struct {
	state *fakeState
}

func (t *fakeApptTx) SyncPaymentStatus(ctx context.Context, patientID int64, serviceID *int64, date time.Time, status appointments.PaymentStatus) (int64, error) {
	t.state.apptStatus = status
	t.state.apptSynced++
	return t.state.apptMatched, nil
}

// fakeInvTx carries the staged state so stock deductions roll back with the
// rest of the transaction.
type fakeInvTx struct {
	inventory.TxRepository
	state *fakeState
}

// fakeStock deducts from the transaction's on-hand map with all-or-nothing
// semantics, mirroring the FEFO consumer's contract.
type fakeStock struct{}

func (fakeStock) ConsumeTx(ctx context.Context, tx inventory.TxRepository, input inventory.ConsumeInput) (inventory.ConsumeResult, error) {
	state := tx.(*fakeInvTx).state
	if input.Qty.Sign() <= 0 {
		return inventory.ConsumeResult{}, inventory.ErrInvalidQuantity
	}
	onHand, ok := state.stock[input.ItemID]
	if !ok {
		return inventory.ConsumeResult{}, inventory.ErrItemNotFound
	}
	if onHand.LessThan(input.Qty) {
		return inventory.ConsumeResult{}, fmt.Errorf("%w: requested %s", inventory.ErrInsufficientStock, input.Qty)
	}
	remaining := onHand.Sub(input.Qty)
	state.stock[input.ItemID] = remaining
	return inventory.ConsumeResult{
		Item: inventory.Item{
			ID:                input.ItemID,
			Name:              fmt.Sprintf("item-%d", input.ItemID),
			LowStockThreshold: state.thresholds[input.ItemID],
		},
		Remaining: remaining,
	}, nil
}

type fakePricer struct {
	price decimal.Decimal
}

func (p *fakePricer) Price(ctx context.Context, serviceID *int64) (decimal.Decimal, error) {
	if serviceID == nil {
		return decimal.Zero, nil
	}
	return p.price, nil
}

type fakeNotifier struct {
	alerted []int64
}

func (n *fakeNotifier) LowStock(ctx context.Context, item inventory.Item, onHand decimal.Decimal) (bool, error) {
	n.alerted = append(n.alerted, item.ID)
	return true, nil
}

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, log shared.AuditLog) error { return nil }

func newTestService(state *fakeState, price string) (*Service, *fakeNotifier) {
	notifier := &fakeNotifier{}
	repo := &fakeRepo{state: state}
	svc := NewService(
		repo,
		fakeStock{},
		&fakePricer{price: decimal.RequireFromString(price)},
		&fakePayTx{state: state},
		notifier,
		noopAudit{},
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, notifier
}

func seedPendingVisit(state *fakeState, id int64, serviceID *int64) {
	state.visits[id] = Visit{
		ID:        id,
		PatientID: 9,
		ServiceID: serviceID,
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartedAt: time.Now().UTC(),
		Status:    StatusPending,
	}
}

func TestCompleteHMOCreatesPaymentAndSyncsAppointment(t *testing.T) {
	state := newFakeState()
	serviceID := int64(4)
	seedPendingVisit(state, 1, &serviceID)
	state.stock[10] = dec("8")

	svc, _ := newTestService(state, "2500")
	v, err := svc.CompleteWithDetails(context.Background(), 1, CompleteInput{
		StockLines: []StockLine{{ItemID: 10, Qty: dec("2")}},
		Note:       Note{Findings: "caries on 36"},
		Outcome:    OutcomeHMOFullyCovered,
		ActorID:    3,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, v.Status)
	require.Equal(t, "caries on 36", v.Note.Findings)
	require.NotNil(t, v.EndedAt)

	require.Len(t, v.Payments, 1)
	require.Equal(t, payments.MethodHMO, v.Payments[0].Method)
	require.True(t, dec("2500").Equal(v.Payments[0].AmountPaid))
	require.NotEmpty(t, v.Payments[0].RefCode)

	require.Equal(t, appointments.PaymentPaid, state.apptStatus)
	require.Equal(t, 1, state.apptSynced)
	require.True(t, dec("6").Equal(state.stock[10]))
}

func TestCompleteRejectsNonPendingVisit(t *testing.T) {
	state := newFakeState()
	seedPendingVisit(state, 1, nil)
	v := state.visits[1]
	v.Status = StatusCompleted
	state.visits[1] = v

	svc, _ := newTestService(state, "2500")
	_, err := svc.CompleteWithDetails(context.Background(), 1, CompleteInput{Outcome: OutcomePaid})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteInsufficientStockRollsBackEverything(t *testing.T) {
	state := newFakeState()
	seedPendingVisit(state, 1, nil)
	state.stock[10] = dec("5")
	state.stock[11] = dec("1")

	svc, _ := newTestService(state, "2500")
	_, err := svc.CompleteWithDetails(context.Background(), 1, CompleteInput{
		StockLines: []StockLine{
			{ItemID: 10, Qty: dec("3")},
			{ItemID: 11, Qty: dec("4")},
		},
		Outcome: OutcomePaid,
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	require.Equal(t, StatusPending, state.visits[1].Status)
	require.True(t, dec("5").Equal(state.stock[10]), "first deduction must roll back")
	require.Empty(t, state.pays)
	require.Zero(t, state.apptSynced)
}

func TestCompleteNotifiesLowStockAfterCommit(t *testing.T) {
	state := newFakeState()
	seedPendingVisit(state, 1, nil)
	state.stock[10] = dec("5")
	state.thresholds[10] = dec("3")
	state.stock[11] = dec("50")
	state.thresholds[11] = dec("3")

	svc, notifier := newTestService(state, "2500")
	_, err := svc.CompleteWithDetails(context.Background(), 1, CompleteInput{
		StockLines: []StockLine{
			{ItemID: 10, Qty: dec("2")},
			{ItemID: 11, Qty: dec("2")},
		},
		Outcome: OutcomeUnpaid,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{10}, notifier.alerted)
}

func TestCompleteMayaToCashConvertsWithoutNewRow(t *testing.T) {
	state := newFakeState()
	seedPendingVisit(state, 1, nil)
	state.pays = []payments.Payment{{
		ID:        41,
		VisitID:   1,
		AmountDue: dec("2500"),
		Method:    payments.MethodMaya,
		Status:    payments.StatusPending,
	}}

	svc, _ := newTestService(state, "2500")
	v, err := svc.CompleteWithDetails(context.Background(), 1, CompleteInput{
		Outcome:      OutcomeUnpaid,
		MethodChange: MethodChangeMayaToCash,
	})
	require.NoError(t, err)
	require.Len(t, v.Payments, 1)
	require.Equal(t, payments.MethodCash, v.Payments[0].Method)
	require.Equal(t, payments.StatusPaid, v.Payments[0].Status)
	require.True(t, dec("2500").Equal(v.Payments[0].AmountPaid))
}

func TestRejectOnlyFromPending(t *testing.T) {
	state := newFakeState()
	seedPendingVisit(state, 1, nil)

	svc, _ := newTestService(state, "2500")
	v, err := svc.Reject(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, v.Status)

	_, err = svc.Reject(context.Background(), 1, 3)
	require.ErrorIs(t, err, ErrInvalidState)
}
