package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrRateNotFound    = errors.New("shipping rate not found for selected service")
	ErrEmptyCart       = errors.New("checkout requires at least one item")
)

// NotCancellableError names the status that blocked a cancellation.
type NotCancellableError struct {
	OrderNo string
	Current OrderStatus
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order %s is not cancellable in status %q", e.OrderNo, e.Current)
}

// PreconditionError names current vs required status for a rejected action.
type PreconditionError struct {
	OrderNo  string
	Current  OrderStatus
	Required []OrderStatus
}

func (e *PreconditionError) Error() string {
	req := make([]string, len(e.Required))
	for i, s := range e.Required {
		req[i] = string(s)
	}
	return fmt.Sprintf("order %s is in status %q, requires one of: %s",
		e.OrderNo, e.Current, strings.Join(req, ", "))
}

// MissingShippingOrderError fails a pickup batch fast, naming every order
// that has not been submitted to the courier yet.
type MissingShippingOrderError struct {
	OrderNos []string
}

func (e *MissingShippingOrderError) Error() string {
	return fmt.Sprintf("orders not yet submitted to courier: %s", strings.Join(e.OrderNos, ", "))
}

// LeadTimeError tells the caller the earliest valid pickup time.
type LeadTimeError struct {
	Requested time.Time
	Earliest  time.Time
}

func (e *LeadTimeError) Error() string {
	return fmt.Sprintf("pickup at %s is inside the minimum lead time, earliest valid time is %s",
		e.Requested.Format(time.RFC3339), e.Earliest.Format(time.RFC3339))
}
