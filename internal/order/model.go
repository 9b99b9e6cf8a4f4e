package order

import (
	"time"
)

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusProcessing     OrderStatus = "processing"
	StatusLabelCreated   OrderStatus = "label_created"
	StatusShipped        OrderStatus = "shipped"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusFailed         OrderStatus = "failed"
)

// statusRank orders the happy-path lifecycle. Transitions may only move to a
// higher rank; cancelled and failed sit outside the chain.
var statusRank = map[OrderStatus]int{
	StatusPendingPayment: 0,
	StatusPaid:           1,
	StatusProcessing:     2,
	StatusLabelCreated:   3,
	StatusShipped:        4,
	StatusDelivered:      5,
}

// Rank returns the lifecycle rank of s, or -1 for statuses outside
// the forward chain (cancelled, failed).
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusFailed
}

// IsCancellable reports whether an order in this status may still be
// cancelled. Once a pickup label exists the courier owns the parcel.
func (s OrderStatus) IsCancellable() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusProcessing:
		return true
	}
	return false
}

// CanTransition reports whether moving from -> to is a legal lifecycle edge.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	switch to {
	case StatusCancelled:
		return from.IsCancellable()
	case StatusFailed:
		return from == StatusPendingPayment
	default:
		return to.Rank() > from.Rank() && from.Rank() >= 0
	}
}

type Order struct {
	ID      uint
	OrderNo string
	Status  OrderStatus

	// money, smallest currency unit (rupiah)
	Subtotal         int64
	ShippingCost     int64
	InsuranceAmount  int64
	ServiceFee       int64
	ShippingCashback int64
	GrandTotal       int64

	Courier        string
	CourierService string
	VehicleType    *string

	ShippingOrderNo *string
	AWBNumber       *string
	WaybillURL      *string

	CustomerID uint
	AddressID  uint

	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []OrderItem
	Customer *Customer
	Address  *Address
}

// ComputeGrandTotal recomputes the amount charged to the customer. Stored
// totals are always derived from this, never from the caller.
func (o *Order) ComputeGrandTotal() int64 {
	return o.Subtotal + o.ShippingCost + o.InsuranceAmount + o.ServiceFee
}

// OrderItem is a snapshot of the variant at order time, immutable thereafter.
type OrderItem struct {
	ID          uint
	OrderID     uint
	VariantID   string
	Name        string
	WeightGrams int
	Quantity    int
	UnitPrice   int64
	Subtotal    int64
}

type Customer struct {
	ID    uint
	Name  string
	Email string
	Phone string
}

// Address carries a denormalized copy of the postal hierarchy at order time,
// decoupled from the live lookup provider's ids.
type Address struct {
	ID            uint
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
