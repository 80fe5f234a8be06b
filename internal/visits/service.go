package visits

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/payments"
	"github.com/novadent/novadent/internal/shared"
)

// RepositoryPort abstracts visit persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Visit, error)
	Create(ctx context.Context, v Visit) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]Visit, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// StockPort deducts inventory inside the caller's transaction.
type StockPort interface {
	ConsumeTx(ctx context.Context, tx inventory.TxRepository, input inventory.ConsumeInput) (inventory.ConsumeResult, error)
}

// PricerPort resolves the price of the visit's service. A nil service id
// prices at zero.
type PricerPort interface {
	Price(ctx context.Context, serviceID *int64) (decimal.Decimal, error)
}

// NotifierPort raises low-stock alerts after a completion commits. The
// returned bool reports whether an alert was actually dispatched (the
// notifier debounces repeats).
type NotifierPort interface {
	LowStock(ctx context.Context, item inventory.Item, onHand decimal.Decimal) (bool, error)
}

// PaymentsPort reads a visit's payments outside a transaction.
type PaymentsPort interface {
	ListByVisit(ctx context.Context, visitID int64) ([]payments.Payment, error)
}

// AuditPort records staff actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts completed visits. May be nil.
type MetricsPort interface {
	VisitCompleted()
}

// Service orchestrates visit lifecycle, including the single-transaction
// completion flow that ties stock, payments and the appointment projection
// together.
type Service struct {
	repo     RepositoryPort
	stock    StockPort
	pricer   PricerPort
	payments PaymentsPort
	notifier NotifierPort
	audit    AuditPort
	metrics  MetricsPort
	logger   *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, stock StockPort, pricer PricerPort, pay PaymentsPort, notifier NotifierPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, pricer: pricer, payments: pay, notifier: notifier, audit: audit, metrics: metrics, logger: logger}
}

// Create opens a new pending visit.
func (s *Service) Create(ctx context.Context, input CreateInput) (Visit, error) {
	now := time.Now().UTC()
	date := input.Date
	if date.IsZero() {
		date = now.Truncate(24 * time.Hour)
	}
	v := Visit{
		PatientID: input.PatientID,
		ServiceID: input.ServiceID,
		Date:      date,
		StartedAt: now,
		Status:    StatusPending,
	}
	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return Visit{}, fmt.Errorf("create visit: %w", err)
	}
	v.ID = id
	v.CreatedAt = now

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "visit.create",
		Entity:   "visit",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"patient_id": input.PatientID},
	})
	return v, nil
}

// Get returns the visit with its payments attached. Reading a visit's
// clinical note is itself audited.
func (s *Service) Get(ctx context.Context, id, actorID int64) (Visit, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return Visit{}, err
	}
	pays, err := s.payments.ListByVisit(ctx, id)
	if err != nil {
		return Visit{}, fmt.Errorf("list visit payments: %w", err)
	}
	v.Payments = pays

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "visit.note.read",
		Entity:   "visit",
		EntityID: strconv.FormatInt(id, 10),
	})
	return v, nil
}

// List returns visits matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Visit, error) {
	return s.repo.List(ctx, filter)
}

// Reject marks a pending visit rejected. No stock or payment writes occur.
func (s *Service) Reject(ctx context.Context, id, actorID int64) (Visit, error) {
	now := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusPending {
			return ErrInvalidState
		}
		return tx.SetRejected(ctx, id, now)
	})
	if err != nil {
		return Visit{}, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "visit.reject",
		Entity:   "visit",
		EntityID: strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}

type lowStockHit struct {
	item   inventory.Item
	onHand decimal.Decimal
}

// CompleteWithDetails finalises a pending visit in one transaction: every
// stock line is deducted FEFO, the clinical note is saved, payments are
// reconciled against the declared outcome, and the matching appointment's
// payment status is projected. Any failure rolls the whole completion back.
// Low-stock notifications go out only after the commit.
func (s *Service) CompleteWithDetails(ctx context.Context, id int64, input CompleteInput) (Visit, error) {
	now := time.Now().UTC()
	var hits []lowStockHit
	var syncMiss bool

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusPending {
			return ErrInvalidState
		}

		for _, line := range input.StockLines {
			res, err := s.stock.ConsumeTx(ctx, tx.Inventory(), inventory.ConsumeInput{
				ItemID:  line.ItemID,
				Qty:     line.Qty,
				RefType: inventory.RefTypeVisit,
				RefID:   id,
				ActorID: input.ActorID,
				Note:    line.Notes,
			})
			if err != nil {
				return fmt.Errorf("deduct item %d: %w", line.ItemID, err)
			}
			if res.LowStock() {
				hits = append(hits, lowStockHit{item: res.Item, onHand: res.Remaining})
			}
		}

		if err := tx.SetCompleted(ctx, id, input.Note, now); err != nil {
			return err
		}

		price, err := s.pricer.Price(ctx, v.ServiceID)
		if err != nil {
			return fmt.Errorf("price service: %w", err)
		}
		existing, err := tx.Payments().ListByVisit(ctx, id)
		if err != nil {
			return err
		}
		plan, err := ReconcilePayments(ReconcileInput{
			VisitID:      id,
			Price:        price,
			Existing:     existing,
			Outcome:      input.Outcome,
			OnsiteAmount: input.OnsiteAmount,
			MethodChange: input.MethodChange,
			ActorID:      input.ActorID,
			Now:          now,
		})
		if err != nil {
			return err
		}
		for _, p := range plan.Create {
			p.RefCode = uuid.NewString()
			if _, err := tx.Payments().Insert(ctx, p); err != nil {
				return fmt.Errorf("insert payment: %w", err)
			}
		}
		for _, paymentID := range plan.ConvertToCash {
			if err := tx.Payments().ConvertToCash(ctx, paymentID, now); err != nil {
				return fmt.Errorf("convert payment %d: %w", paymentID, err)
			}
		}

		// Best effort within the tx: zero matching appointments is fine,
		// the projection simply has nowhere to land.
		matched, err := tx.Appointments().SyncPaymentStatus(ctx, v.PatientID, v.ServiceID, v.Date, plan.Projection)
		if err != nil {
			return err
		}
		syncMiss = matched == 0
		return nil
	})
	if err != nil {
		return Visit{}, err
	}

	if s.metrics != nil {
		s.metrics.VisitCompleted()
	}
	if syncMiss {
		s.logger.Info("visit completed with no matching appointment", "visit_id", id)
	}
	for _, hit := range hits {
		sent, err := s.notifier.LowStock(ctx, hit.item, hit.onHand)
		if err != nil {
			s.logger.Error("low-stock notification failed", "item_id", hit.item.ID, "error", err)
			continue
		}
		if sent {
			s.logger.Warn("low stock", "item_id", hit.item.ID, "item", hit.item.Name, "on_hand", hit.onHand.String())
		}
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "visit.complete",
		Entity:   "visit",
		EntityID: strconv.FormatInt(id, 10),
		Meta: map[string]any{
			"payment_status": string(input.Outcome),
			"stock_lines":    len(input.StockLines),
		},
	})
	return s.Get(ctx, id, input.ActorID)
}
