package order

import (
	"context"

	"lilinku-be/internal/logger"

	"go.uber.org/zap"
)

type FollowupKind string

const (
	FollowupSubmitShipment    FollowupKind = "submit_shipment"
	FollowupConfirmationEmail FollowupKind = "send_confirmation_email"
)

// Followup is a downstream action produced by a transition. The transition
// itself never executes these; the dispatcher does, fire-and-forget, so a
// downstream failure cannot fail the webhook response to the provider.
type Followup struct {
	Kind    FollowupKind
	OrderNo string
	OrderID uint
}

type Dispatcher struct {
	SubmitShipment   func(ctx context.Context, orderNo string) error
	SendConfirmation func(ctx context.Context, orderID uint) error
}

// Dispatch runs each followup in its own goroutine without awaiting
// completion. Failures are logged, never retried here; the periodic sweep
// re-derives missed shipment submissions.
func (d *Dispatcher) Dispatch(ctx context.Context, followups []Followup) {
	if d == nil || len(followups) == 0 {
		return
	}

	// detach from the request lifetime, keep the request id
	ctx = context.WithoutCancel(ctx)

	for _, f := range followups {
		f := f
		go func() {
			log := logger.FromCtx(ctx).With(
				zap.String("followup", string(f.Kind)),
				zap.String("order_no", f.OrderNo),
			)

			var err error
			switch f.Kind {
			case FollowupSubmitShipment:
				if d.SubmitShipment != nil {
					err = d.SubmitShipment(ctx, f.OrderNo)
				}
			case FollowupConfirmationEmail:
				if d.SendConfirmation != nil {
					err = d.SendConfirmation(ctx, f.OrderID)
				}
			}

			if err != nil {
				log.Error("followup failed", zap.Error(err))
				return
			}
			log.Info("followup completed")
		}()
	}
}
