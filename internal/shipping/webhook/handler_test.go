package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lilinku-be/internal/order"
	"lilinku-be/internal/payment"
	"lilinku-be/internal/shipping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, input order.CheckoutInput) (*order.CheckoutResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CheckoutResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderNo string) (*order.Order, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, status *order.OrderStatus, limit, offset int32) ([]*order.Order, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) ApplyPaymentNotification(ctx context.Context, n *payment.Notification) (*order.ReconcileResult, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ReconcileResult), args.Error(1)
}

func (m *MockOrderService) PollPaymentStatus(ctx context.Context, orderNo string) (*order.ReconcileResult, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ReconcileResult), args.Error(1)
}

func (m *MockOrderService) SubmitShipment(ctx context.Context, orderNo string) error {
	args := m.Called(ctx, orderNo)
	return args.Error(0)
}

func (m *MockOrderService) ArrangePickup(ctx context.Context, input order.PickupInput) (*order.PickupResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PickupResult), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderNo, reason string) error {
	args := m.Called(ctx, orderNo, reason)
	return args.Error(0)
}

func (m *MockOrderService) ApplyShipmentStatus(ctx context.Context, push shipping.StatusPush) (*order.ShipmentStatusResult, error) {
	args := m.Called(ctx, push)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ShipmentStatusResult), args.Error(1)
}

func (m *MockOrderService) SweepPendingPayments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderService) SetDispatcher(d *order.Dispatcher) {
	m.Called(d)
}

func postStatus(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shipping", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AppliesDeliveredStatus(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyShipmentStatus", mock.Anything, shipping.StatusPush{
		OrderNo:    "KA-1",
		AWB:        "AWB-1",
		StatusText: "Paket telah diterima",
	}).Return(&order.ShipmentStatusResult{
		OrderNo: "LLK-1",
		Status:  order.StatusDelivered,
		Changed: true,
	}, nil)

	h := NewHandler(svc)
	rec := postStatus(t, h, `{"order_id":"KA-1","awb":"AWB-1","status":"Paket telah diterima"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_MissingOrderIDRejected(t *testing.T) {
	svc := new(MockOrderService)

	h := NewHandler(svc)
	rec := postStatus(t, h, `{"awb":"AWB-1","status":"delivered"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ApplyShipmentStatus", mock.Anything, mock.Anything)
}

func TestHandler_UnknownOrderAcknowledged(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyShipmentStatus", mock.Anything, mock.Anything).
		Return(&order.ShipmentStatusResult{UnknownOrder: true}, nil)

	h := NewHandler(svc)
	rec := postStatus(t, h, `{"order_id":"KA-GHOST","status":"delivered"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_InternalErrorSurfaces(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyShipmentStatus", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	h := NewHandler(svc)
	rec := postStatus(t, h, `{"order_id":"KA-1","status":"delivered"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
