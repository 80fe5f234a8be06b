package visits

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/payments"
)

// ReconcileInput feeds the payment reconciler with the visit's current
// payment state and the staff-declared outcome.
type ReconcileInput struct {
	VisitID      int64
	Price        decimal.Decimal
	Existing     []payments.Payment
	Outcome      DeclaredOutcome
	OnsiteAmount decimal.Decimal
	MethodChange string
	ActorID      int64
	Now          time.Time
}

// ReconcilePlan lists the payment writes needed to match the declared
// outcome, plus the appointment-facing projection of that outcome. The plan
// never deletes a payment and never reduces total paid.
type ReconcilePlan struct {
	Create        []payments.Payment
	ConvertToCash []int64
	Projection    appointments.PaymentStatus
}

// ReconcilePayments builds the plan for a declared outcome:
//
//   - paid: when total paid is short of the price, one new settled cash
//     payment covers the shortfall.
//   - hmo_fully_covered: one new settled hmo payment for the full price,
//     regardless of prior payments.
//   - partial: one new settled cash payment for the declared on-site amount.
//   - unpaid with maya_to_cash: the first pending maya payment is converted
//     in place; no new row.
func ReconcilePayments(in ReconcileInput) (ReconcilePlan, error) {
	paidAt := in.Now

	switch in.Outcome {
	case OutcomePaid:
		shortfall := in.Price.Sub(payments.TotalPaid(in.Existing))
		plan := ReconcilePlan{Projection: appointments.PaymentPaid}
		if shortfall.Sign() > 0 {
			plan.Create = append(plan.Create, payments.Payment{
				VisitID:    in.VisitID,
				AmountDue:  shortfall,
				AmountPaid: shortfall,
				Method:     payments.MethodCash,
				Status:     payments.StatusPaid,
				PaidAt:     &paidAt,
				CreatedBy:  in.ActorID,
			})
		}
		return plan, nil

	case OutcomeHMOFullyCovered:
		return ReconcilePlan{
			Projection: appointments.PaymentPaid,
			Create: []payments.Payment{{
				VisitID:    in.VisitID,
				AmountDue:  in.Price,
				AmountPaid: in.Price,
				Method:     payments.MethodHMO,
				Status:     payments.StatusPaid,
				PaidAt:     &paidAt,
				CreatedBy:  in.ActorID,
			}},
		}, nil

	case OutcomePartial:
		if in.OnsiteAmount.Sign() <= 0 {
			return ReconcilePlan{}, ErrInvalidAmount
		}
		return ReconcilePlan{
			Projection: appointments.PaymentPaid,
			Create: []payments.Payment{{
				VisitID:    in.VisitID,
				AmountDue:  in.OnsiteAmount,
				AmountPaid: in.OnsiteAmount,
				Method:     payments.MethodCash,
				Status:     payments.StatusPaid,
				PaidAt:     &paidAt,
				CreatedBy:  in.ActorID,
			}},
		}, nil

	case OutcomeUnpaid:
		plan := ReconcilePlan{Projection: appointments.PaymentUnpaid}
		if in.MethodChange == MethodChangeMayaToCash {
			converted := false
			for _, p := range in.Existing {
				if p.Method == payments.MethodMaya && p.Status == payments.StatusPending {
					plan.ConvertToCash = append(plan.ConvertToCash, p.ID)
					converted = true
					break
				}
			}
			if !converted {
				return ReconcilePlan{}, ErrNoPendingPayment
			}
		}
		return plan, nil
	}

	return ReconcilePlan{}, fmt.Errorf("%w: %q", ErrUnknownOutcome, in.Outcome)
}
