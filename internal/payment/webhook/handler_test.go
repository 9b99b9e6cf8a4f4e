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
	"github.com/stretchr/testify/require"
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

func postNotification(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AcknowledgesSettlement(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyPaymentNotification", mock.Anything, mock.MatchedBy(func(n *payment.Notification) bool {
		return n.OrderID == "LLK-1" && n.TransactionStatus == "settlement" && len(n.Raw) > 0
	})).Return(&order.ReconcileResult{OrderNo: "LLK-1", Status: order.StatusPaid, Changed: true}, nil)

	h := NewHandler(svc, nil)
	rec := postNotification(t, h, `{
		"order_id": "LLK-1",
		"status_code": "200",
		"gross_amount": "170000.00",
		"transaction_status": "settlement",
		"signature_key": "sig"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestHandler_RejectsInvalidSignature(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyPaymentNotification", mock.Anything, mock.Anything).
		Return(nil, payment.ErrInvalidSignature)

	h := NewHandler(svc, nil)
	rec := postNotification(t, h, `{"order_id":"LLK-1","signature_key":"forged"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsMalformedJSON(t *testing.T) {
	svc := new(MockOrderService)

	h := NewHandler(svc, nil)
	rec := postNotification(t, h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ApplyPaymentNotification", mock.Anything, mock.Anything)
}

func TestHandler_InternalErrorOnReconcileFailure(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyPaymentNotification", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	h := NewHandler(svc, nil)
	rec := postNotification(t, h, `{"order_id":"LLK-1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_DispatchesFollowups(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ApplyPaymentNotification", mock.Anything, mock.Anything).
		Return(&order.ReconcileResult{
			OrderNo: "LLK-1",
			Status:  order.StatusPaid,
			Changed: true,
			Followups: []order.Followup{
				{Kind: order.FollowupSubmitShipment, OrderNo: "LLK-1"},
			},
		}, nil)

	submitted := make(chan string, 1)
	dispatcher := &order.Dispatcher{
		SubmitShipment: func(ctx context.Context, orderNo string) error {
			submitted <- orderNo
			return nil
		},
	}

	h := NewHandler(svc, dispatcher)
	rec := postNotification(t, h, `{"order_id":"LLK-1","transaction_status":"settlement"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LLK-1", <-submitted)
}
