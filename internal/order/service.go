package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lilinku-be/internal/catalog"
	"lilinku-be/internal/config"
	"lilinku-be/internal/logger"
	"lilinku-be/internal/payment"
	"lilinku-be/internal/shipping"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Minimum lead time the courier requires between requesting a pickup and the
// pickup itself, in the courier's business timezone.
const pickupLeadTime = 90 * time.Minute

// Orders younger than this are skipped by the sweep; the customer may still
// be inside the hosted payment UI.
const sweepMinAge = 30 * time.Minute

const sweepBatchSize = 100

type CheckoutItemInput struct {
	VariantID string
	Quantity  int
}

type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

type AddressInput struct {
	Street        string
	ProvinceID    int
	Province      string
	CityID        int
	City          string
	DistrictID    int
	District      string
	SubdistrictID int
	Subdistrict   string
	PostalCode    string
}

type ShippingSelectionInput struct {
	Courier      string
	Service      string
	UseInsurance bool
}

type CheckoutInput struct {
	Customer CustomerInput
	Address  AddressInput
	Items    []CheckoutItemInput
	Shipping ShippingSelectionInput

	// ClientTotal is what the storefront displayed. Informational only:
	// stored totals are always recomputed server-side.
	ClientTotal int64
}

type CheckoutResult struct {
	OrderNo     string
	GrandTotal  int64
	Token       string
	RedirectURL string
}

type ReconcileResult struct {
	OrderNo      string
	Status       OrderStatus
	Changed      bool
	UnknownOrder bool
	Followups    []Followup
}

type PickupInput struct {
	OrderNos []string
	PickupAt time.Time
	Vehicle  string
}

type ScheduledPickup struct {
	OrderNo string
	AWB     string
}

type FailedPickup struct {
	OrderNo string
	Reason  string
}

type PickupResult struct {
	Vehicle   string
	Schedule  time.Time
	Scheduled []ScheduledPickup
	Failed    []FailedPickup
}

type ShipmentStatusResult struct {
	OrderNo      string
	Status       OrderStatus
	Changed      bool
	UnknownOrder bool
}

type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	GetOrder(ctx context.Context, orderNo string) (*Order, error)
	ListOrders(ctx context.Context, status *OrderStatus, limit, offset int32) ([]*Order, error)

	ApplyPaymentNotification(ctx context.Context, n *payment.Notification) (*ReconcileResult, error)
	PollPaymentStatus(ctx context.Context, orderNo string) (*ReconcileResult, error)

	SubmitShipment(ctx context.Context, orderNo string) error
	ArrangePickup(ctx context.Context, input PickupInput) (*PickupResult, error)
	Cancel(ctx context.Context, orderNo, reason string) error
	ApplyShipmentStatus(ctx context.Context, push shipping.StatusPush) (*ShipmentStatusResult, error)

	SweepPendingPayments(ctx context.Context) (int, error)

	// SetDispatcher installs the outbox executor used by the sweep. Wired
	// after construction because the dispatcher's actions call back into
	// this service.
	SetDispatcher(d *Dispatcher)
}

type service struct {
	repo       Repository
	catalog    catalog.Repository
	events     payment.EventRepository
	gateway    payment.Gateway
	courier    shipping.Courier
	rates      shipping.RateSource
	shipper    config.ShipperIdentity
	courierLoc *time.Location
	dispatcher *Dispatcher
}

func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	events payment.EventRepository,
	gateway payment.Gateway,
	courier shipping.Courier,
	rates shipping.RateSource,
	shipper config.ShipperIdentity,
) Service {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		logger.L().Error("failed to load Jakarta location, defaulting to UTC", zap.Error(err))
		loc = time.UTC
	}

	return &service{
		repo:       repo,
		catalog:    catalogRepo,
		events:     events,
		gateway:    gateway,
		courier:    courier,
		rates:      rates,
		shipper:    shipper,
		courierLoc: loc,
	}
}

func (s *service) SetDispatcher(d *Dispatcher) {
	s.dispatcher = d
}

// ----------------- Payment Session Issuer -----------------

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Int("item_count", len(input.Items)),
	)

	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// 1. Resolve variants and recompute the subtotal; caller-supplied
	// amounts are never trusted.
	items := make([]OrderItem, 0, len(input.Items))
	var subtotal int64
	totalWeight := 0

	for i, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be greater than zero", i)
		}

		variant, err := s.catalog.GetVariant(ctx, in.VariantID)
		if errors.Is(err, catalog.ErrVariantNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrVariantNotFound, in.VariantID)
		}
		if err != nil {
			return nil, err
		}
		if !variant.Active {
			return nil, fmt.Errorf("variant %s is no longer available", in.VariantID)
		}
		if variant.Stock < in.Quantity {
			return nil, fmt.Errorf("variant %s is out of stock", in.VariantID)
		}

		itemSubtotal := variant.Price * int64(in.Quantity)
		subtotal += itemSubtotal
		totalWeight += variant.WeightGrams * in.Quantity

		items = append(items, OrderItem{
			VariantID:   variant.ID,
			Name:        variant.DisplayName(),
			WeightGrams: variant.WeightGrams,
			Quantity:    in.Quantity,
			UnitPrice:   variant.Price,
			Subtotal:    itemSubtotal,
		})
	}

	// 2. Re-quote the shipping option server-side.
	options, err := s.rates.GetRates(ctx, shipping.RateQuery{
		OriginDistrictID:         s.shipper.DistrictID,
		DestinationSubdistrictID: input.Address.SubdistrictID,
		WeightGrams:              totalWeight,
		DeclaredValue:            subtotal,
	})
	if err != nil {
		log.Error("rate lookup failed", zap.Error(err))
		return nil, fmt.Errorf("shipping rate lookup: %w", err)
	}

	var selected *shipping.RateOption
	for i := range options {
		if strings.EqualFold(options[i].Courier, input.Shipping.Courier) &&
			strings.EqualFold(options[i].Service, input.Shipping.Service) {
			selected = &options[i]
			break
		}
	}
	if selected == nil {
		return nil, ErrRateNotFound
	}

	var insurance int64
	if input.Shipping.UseInsurance {
		insurance = selected.InsurancePremium
	}

	o := &Order{
		OrderNo:          utils.GenerateOrderNumber(),
		Status:           StatusPendingPayment,
		Subtotal:         subtotal,
		ShippingCost:     selected.Cost,
		InsuranceAmount:  insurance,
		ServiceFee:       0,
		ShippingCashback: selected.Cashback,
		Courier:          selected.Courier,
		CourierService:   selected.Service,
		Items:            items,
		Customer: &Customer{
			Name:  input.Customer.Name,
			Email: input.Customer.Email,
			Phone: utils.NormalizePhoneID(input.Customer.Phone),
		},
		Address: &Address{
			Street:        input.Address.Street,
			ProvinceID:    input.Address.ProvinceID,
			Province:      input.Address.Province,
			CityID:        input.Address.CityID,
			City:          input.Address.City,
			DistrictID:    input.Address.DistrictID,
			District:      input.Address.District,
			SubdistrictID: input.Address.SubdistrictID,
			Subdistrict:   input.Address.Subdistrict,
			PostalCode:    input.Address.PostalCode,
		},
	}
	o.GrandTotal = o.ComputeGrandTotal()

	if input.ClientTotal != 0 && input.ClientTotal != o.GrandTotal {
		log.Warn("client total mismatch, using recomputed total",
			zap.Int64("client_total", input.ClientTotal),
			zap.Int64("recomputed", o.GrandTotal),
		)
	}

	log = log.With(zap.String("order_no", o.OrderNo), zap.Int64("grand_total", o.GrandTotal))

	// 3. Persist before the token request so a webhook arriving early
	// still has a target row.
	if err := s.repo.CreateOrderTx(ctx, o); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return nil, err
	}

	itemDetails := make([]payment.ItemDetail, 0, len(items)+2)
	for _, it := range items {
		itemDetails = append(itemDetails, payment.ItemDetail{
			ID:       it.VariantID,
			Name:     it.Name,
			Price:    it.UnitPrice,
			Quantity: it.Quantity,
		})
	}
	itemDetails = append(itemDetails, payment.ItemDetail{
		ID: "shipping", Name: "Shipping", Price: o.ShippingCost, Quantity: 1,
	})
	if insurance > 0 {
		itemDetails = append(itemDetails, payment.ItemDetail{
			ID: "insurance", Name: "Shipping insurance", Price: insurance, Quantity: 1,
		})
	}

	token, err := s.gateway.CreateTransaction(ctx, o.OrderNo, o.GrandTotal, payment.CustomerInfo{
		Name:  o.Customer.Name,
		Email: o.Customer.Email,
		Phone: o.Customer.Phone,
	}, itemDetails)
	if err != nil {
		// The pending order stays behind for the sweep to resolve; the
		// caller still has to hear about the failure.
		log.Error("payment token request failed", zap.Error(err))
		return &CheckoutResult{OrderNo: o.OrderNo, GrandTotal: o.GrandTotal},
			fmt.Errorf("failed to create payment token: %w", err)
	}

	log.Info("checkout session created")

	return &CheckoutResult{
		OrderNo:     o.OrderNo,
		GrandTotal:  o.GrandTotal,
		Token:       token.Token,
		RedirectURL: token.RedirectURL,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderNo string) (*Order, error) {
	return s.repo.GetByOrderNo(ctx, orderNo)
}

func (s *service) ListOrders(ctx context.Context, status *OrderStatus, limit, offset int32) ([]*Order, error) {
	return s.repo.ListOrders(ctx, status, limit, offset)
}

// ----------------- Payment Status Reconciler -----------------

func (s *service) ApplyPaymentNotification(ctx context.Context, n *payment.Notification) (*ReconcileResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ApplyPaymentNotification"),
		zap.String("order_no", n.OrderID),
		zap.String("transaction_status", n.TransactionStatus),
	)

	// Sole authenticity check: the endpoint is internet-reachable.
	if err := s.gateway.VerifySignature(n); err != nil {
		log.Warn("webhook signature rejected", zap.String("event", "security"))
		return nil, err
	}

	// Audit trail first: one append-only row per webhook reconciliation
	// attempt, regardless of what the status mapping decides.
	if err := s.events.AppendEvent(ctx, &payment.StatusEvent{
		OrderNo:       n.OrderID,
		TransactionID: n.TransactionID,
		StatusCode:    n.StatusCode,
		StatusMessage: n.TransactionStatus,
		Payload:       n.Raw,
	}); err != nil {
		log.Error("failed to append payment status event", zap.Error(err))
	}

	o, err := s.repo.GetByOrderNo(ctx, n.OrderID)
	if errors.Is(err, ErrOrderNotFound) {
		// A valid signed notification for an order we have no record of
		// is a data-consistency bug, never the provider's problem.
		log.Error("signed notification for unknown order",
			zap.String("alert", "data_consistency"),
		)
		return &ReconcileResult{OrderNo: n.OrderID, UnknownOrder: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if gross, perr := payment.ParseGrossAmount(n.GrossAmount); perr == nil && gross != o.GrandTotal {
		log.Warn("gross amount differs from stored grand total",
			zap.Int64("gross_amount", gross),
			zap.Int64("grand_total", o.GrandTotal),
		)
	}

	return s.applyOutcome(ctx, o, payment.MapTransactionStatus(n.TransactionStatus, n.FraudStatus))
}

func (s *service) PollPaymentStatus(ctx context.Context, orderNo string) (*ReconcileResult, error) {
	// Lookup by order number first; the poll never trusts a caller-supplied
	// internal id.
	o, err := s.repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	n, err := s.gateway.GetTransactionStatus(ctx, o.OrderNo)
	if err != nil {
		return nil, err
	}

	return s.applyOutcome(ctx, o, payment.MapTransactionStatus(n.TransactionStatus, n.FraudStatus))
}

func (s *service) applyOutcome(ctx context.Context, o *Order, outcome payment.Outcome) (*ReconcileResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_no", o.OrderNo),
		zap.String("status", string(o.Status)),
	)

	res := &ReconcileResult{OrderNo: o.OrderNo, Status: o.Status}

	switch outcome {
	case payment.OutcomePaid:
		changed, err := s.repo.UpdateStatusFrom(ctx, o.OrderNo, []OrderStatus{StatusPendingPayment}, StatusPaid)
		if err != nil {
			return nil, err
		}
		res.Changed = changed
		if changed {
			res.Status = StatusPaid
			log.Info("order marked paid")
		}

		// Downstream triggers are attempted even when the status did not
		// change: an earlier attempt may have failed after the transition.
		if changed || o.Status.Rank() >= StatusPaid.Rank() {
			res.Followups = []Followup{
				{Kind: FollowupSubmitShipment, OrderNo: o.OrderNo, OrderID: o.ID},
				{Kind: FollowupConfirmationEmail, OrderNo: o.OrderNo, OrderID: o.ID},
			}
		}

	case payment.OutcomeFailed:
		changed, err := s.repo.UpdateStatusFrom(ctx, o.OrderNo, []OrderStatus{StatusPendingPayment}, StatusFailed)
		if err != nil {
			return nil, err
		}
		res.Changed = changed
		if changed {
			res.Status = StatusFailed
			log.Info("order marked failed")
		}

	default:
		// pending or anything unrecognized: acknowledge and exit
	}

	return res, nil
}

// ----------------- Shipment Submitter -----------------

func (s *service) SubmitShipment(ctx context.Context, orderNo string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SubmitShipment"),
		zap.String("order_no", orderNo),
	)

	o, err := s.repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}

	// Once the provider order number is recorded, re-invocation is a no-op.
	if o.ShippingOrderNo != nil {
		log.Info("shipment already submitted", zap.String("provider_order_no", *o.ShippingOrderNo))
		return nil
	}

	if o.Status != StatusPaid && o.Status != StatusProcessing {
		return &PreconditionError{
			OrderNo:  o.OrderNo,
			Current:  o.Status,
			Required: []OrderStatus{StatusPaid, StatusProcessing},
		}
	}
	if o.Address == nil || len(o.Items) == 0 {
		return fmt.Errorf("order %s has no address or items", o.OrderNo)
	}

	manifest := make([]shipping.ManifestItem, 0, len(o.Items))
	for _, it := range o.Items {
		manifest = append(manifest, shipping.ManifestItem{
			Name:        it.Name,
			Quantity:    it.Quantity,
			WeightGrams: it.WeightGrams,
			Price:       it.UnitPrice,
		})
	}

	providerOrderNo, err := s.courier.CreateShipment(ctx, shipping.ShipmentRequest{
		OrderNo: o.OrderNo,
		Shipper: shipping.Party{
			Name:          s.shipper.Name,
			Phone:         s.shipper.Phone,
			Email:         s.shipper.Email,
			Address:       s.shipper.Address,
			DistrictID:    s.shipper.DistrictID,
			SubdistrictID: s.shipper.SubdistrictID,
			PostalCode:    s.shipper.PostalCode,
		},
		Receiver: shipping.Party{
			Name:          o.Customer.Name,
			Phone:         o.Customer.Phone,
			Email:         o.Customer.Email,
			Address:       o.Address.Street,
			DistrictID:    o.Address.DistrictID,
			SubdistrictID: o.Address.SubdistrictID,
			PostalCode:    o.Address.PostalCode,
		},
		Items: manifest,
		// Declared value is the summed item subtotal; shipping cost is
		// not insurable cargo value.
		DeclaredValue: o.Subtotal,
		Courier:       o.Courier,
		Service:       o.CourierService,
		UseInsurance:  o.InsuranceAmount > 0,
	})
	if err != nil {
		// Status stays at paid: the same request is safely retryable.
		log.Error("shipment submission failed", zap.Error(err))
		return fmt.Errorf("shipment submission: %w", err)
	}

	claimed, err := s.repo.ClaimShippingOrderNo(ctx, o.OrderNo, providerOrderNo)
	if err != nil {
		return err
	}
	if !claimed {
		log.Warn("provider order number already recorded by a concurrent submission",
			zap.String("provider_order_no", providerOrderNo),
		)
		return nil
	}

	log.Info("order advanced to processing", zap.String("provider_order_no", providerOrderNo))
	return nil
}

// ----------------- Pickup Arranger -----------------

func (s *service) ArrangePickup(ctx context.Context, input PickupInput) (*PickupResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ArrangePickup"),
		zap.Int("order_count", len(input.OrderNos)),
	)

	if len(input.OrderNos) == 0 {
		return nil, errors.New("pickup requires at least one order")
	}

	orders, err := s.repo.GetManyByOrderNos(ctx, input.OrderNos)
	if err != nil {
		return nil, err
	}

	byNo := make(map[string]*Order, len(orders))
	for _, o := range orders {
		byNo[o.OrderNo] = o
	}

	// Fail fast: every order must already carry a provider order number.
	var missing []string
	for _, no := range input.OrderNos {
		o, ok := byNo[no]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, no)
		}
		if o.ShippingOrderNo == nil {
			missing = append(missing, no)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingShippingOrderError{OrderNos: missing}
	}

	// Pickup times are validated in the courier's business timezone.
	now := time.Now().In(s.courierLoc)
	earliest := now.Add(pickupLeadTime)
	pickupAt := input.PickupAt.In(s.courierLoc)
	if pickupAt.Before(earliest) {
		return nil, &LeadTimeError{Requested: pickupAt, Earliest: earliest}
	}

	vehicle := input.Vehicle
	if vehicle == "" {
		totalWeight := 0
		for _, o := range orders {
			for _, it := range o.Items {
				totalWeight += it.WeightGrams * it.Quantity
			}
		}
		vehicle = shipping.SelectVehicle(totalWeight)
	}

	providerNos := make([]string, 0, len(orders))
	localByProvider := make(map[string]string, len(orders))
	for _, no := range input.OrderNos {
		o := byNo[no]
		providerNos = append(providerNos, *o.ShippingOrderNo)
		localByProvider[*o.ShippingOrderNo] = o.OrderNo
	}

	lines, err := s.courier.RequestPickup(ctx, shipping.PickupRequest{
		Schedule: pickupAt,
		Vehicle:  vehicle,
		OrderNos: providerNos,
	})
	if err != nil {
		return nil, fmt.Errorf("pickup request: %w", err)
	}

	// The batch is explicitly not atomic: apply and report line by line.
	result := &PickupResult{Vehicle: vehicle, Schedule: pickupAt}
	for _, line := range lines {
		localNo, ok := localByProvider[line.OrderNo]
		if !ok {
			log.Warn("pickup response references unknown provider order",
				zap.String("provider_order_no", line.OrderNo),
			)
			continue
		}

		if !line.OK {
			result.Failed = append(result.Failed, FailedPickup{OrderNo: localNo, Reason: line.Message})
			continue
		}

		if _, err := s.repo.SetAWB(ctx, localNo, line.AWB); err != nil {
			log.Error("failed recording awb", zap.String("order_no", localNo), zap.Error(err))
			result.Failed = append(result.Failed, FailedPickup{OrderNo: localNo, Reason: err.Error()})
			continue
		}
		result.Scheduled = append(result.Scheduled, ScheduledPickup{OrderNo: localNo, AWB: line.AWB})
	}

	log.Info("pickup arranged",
		zap.String("vehicle", vehicle),
		zap.Int("scheduled", len(result.Scheduled)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// ----------------- Cancellation Handler -----------------

func (s *service) Cancel(ctx context.Context, orderNo, reason string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Cancel"),
		zap.String("order_no", orderNo),
	)

	o, err := s.repo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}

	if !o.Status.IsCancellable() {
		return &NotCancellableError{OrderNo: o.OrderNo, Current: o.Status}
	}

	// Cancel at the courier first. If that fails the local status stays
	// untouched, so the order remains cancellable later.
	if o.ShippingOrderNo != nil {
		if err := s.courier.CancelShipment(ctx, *o.ShippingOrderNo, reason); err != nil {
			log.Error("courier cancel failed, local status unchanged", zap.Error(err))
			return fmt.Errorf("courier cancel: %w", err)
		}
	}

	changed, err := s.repo.UpdateStatusFrom(ctx, o.OrderNo,
		[]OrderStatus{StatusPendingPayment, StatusPaid, StatusProcessing}, StatusCancelled)
	if err != nil {
		return err
	}
	if !changed {
		// Raced with another transition; report against the fresh status.
		fresh, ferr := s.repo.GetByOrderNo(ctx, orderNo)
		if ferr != nil {
			return ferr
		}
		if fresh.Status == StatusCancelled {
			return nil
		}
		return &NotCancellableError{OrderNo: orderNo, Current: fresh.Status}
	}

	log.Info("order cancelled")
	return nil
}

// ----------------- Shipment Status Webhook Consumer -----------------

func (s *service) ApplyShipmentStatus(ctx context.Context, push shipping.StatusPush) (*ShipmentStatusResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ApplyShipmentStatus"),
		zap.String("provider_order_no", push.OrderNo),
		zap.String("status_text", push.StatusText),
	)

	o, err := s.repo.GetByShippingOrderNo(ctx, push.OrderNo)
	if errors.Is(err, ErrOrderNotFound) {
		// Expected background noise from sandbox traffic; acknowledge it.
		log.Warn("shipment status for unknown provider order")
		return &ShipmentStatusResult{UnknownOrder: true}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &ShipmentStatusResult{OrderNo: o.OrderNo, Status: o.Status}

	// Cache the waybill document link when the courier hands one back.
	if push.WaybillURL != "" && (o.WaybillURL == nil || *o.WaybillURL != push.WaybillURL) {
		if err := s.repo.SetWaybillURL(ctx, o.OrderNo, push.WaybillURL); err != nil {
			log.Error("failed recording waybill url", zap.Error(err))
		}
	}

	// A new AWB counts as this invocation's single status change when it
	// advances a labelled order to shipped.
	if push.AWB != "" && (o.AWBNumber == nil || *o.AWBNumber != push.AWB) {
		if err := s.repo.UpdateAWB(ctx, o.OrderNo, push.AWB); err != nil {
			return nil, err
		}
		log.Info("awb recorded", zap.String("awb", push.AWB))

		if o.Status == StatusProcessing || o.Status == StatusLabelCreated {
			changed, err := s.repo.UpdateStatusFrom(ctx, o.OrderNo,
				[]OrderStatus{StatusProcessing, StatusLabelCreated}, StatusShipped)
			if err != nil {
				return nil, err
			}
			if changed {
				res.Status = StatusShipped
				res.Changed = true
				return res, nil
			}
		}
	}

	var from []OrderStatus
	var target OrderStatus

	switch shipping.MapStatusText(push.StatusText) {
	case shipping.DeliveryShipped:
		from, target = []OrderStatus{StatusProcessing, StatusLabelCreated}, StatusShipped
	case shipping.DeliveryDelivered:
		from, target = []OrderStatus{StatusProcessing, StatusLabelCreated, StatusShipped}, StatusDelivered
	case shipping.DeliveryCancelled:
		from, target = []OrderStatus{StatusPendingPayment, StatusPaid, StatusProcessing}, StatusCancelled
	default:
		log.Debug("unrecognized delivery status ignored")
		return res, nil
	}

	// The from-sets only contain lower-ranked statuses, so a status that is
	// already further along can never regress.
	changed, err := s.repo.UpdateStatusFrom(ctx, o.OrderNo, from, target)
	if err != nil {
		return nil, err
	}
	if changed {
		res.Status = target
		res.Changed = true
		log.Info("delivery status applied", zap.String("new_status", string(target)))
	}

	return res, nil
}

// ----------------- Pending-payment sweep -----------------

// SweepPendingPayments re-polls the provider for orders stuck in
// pending_payment, compensating for missed or failed webhooks. Returns the
// number of orders whose status changed.
func (s *service) SweepPendingPayments(ctx context.Context) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SweepPendingPayments"),
	)

	orderNos, err := s.repo.ListPendingPayment(ctx, sweepMinAge, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(orderNos) == 0 {
		return 0, nil
	}

	log.Info("sweeping pending orders", zap.Int("count", len(orderNos)))

	var resolved int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)

	results := make(chan bool, len(orderNos))
	for _, no := range orderNos {
		no := no
		g.Go(func() error {
			res, err := s.PollPaymentStatus(gctx, no)
			if err != nil {
				// One stuck order must not abort the sweep.
				log.Warn("sweep poll failed", zap.String("order_no", no), zap.Error(err))
				return nil
			}
			s.dispatcher.Dispatch(gctx, res.Followups)
			if res.Changed {
				results <- true
			}
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	for range results {
		resolved++
	}

	log.Info("sweep finished", zap.Int64("resolved", resolved))
	return int(resolved), nil
}
