package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lilinku-be/internal/logger"
	"lilinku-be/internal/order"
	"lilinku-be/internal/payment"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
)

// Handler receives the payment provider's asynchronous status notifications.
type Handler struct {
	OrderSvc   order.Service
	Dispatcher *order.Dispatcher
}

func NewHandler(orderSvc order.Service, dispatcher *order.Dispatcher) *Handler {
	return &Handler{
		OrderSvc:   orderSvc,
		Dispatcher: dispatcher,
	}
}

// ServeHTTP handles POST /webhooks/payment. Once the payload is
// authenticated and parsed it always acknowledges with 2xx — the provider
// retries indefinitely on anything else.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var n payment.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	n.Raw = body

	res, err := h.OrderSvc.ApplyPaymentNotification(r.Context(), &n)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			utils.WriteJSONError(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		log.Error("payment reconciliation failed", zap.Error(err))
		utils.WriteJSONError(w, "reconciliation failed", http.StatusInternalServerError)
		return
	}

	// Fire-and-forget: a downstream failure must not turn into provider
	// retries of an already-confirmed payment.
	h.Dispatcher.Dispatch(r.Context(), res.Followups)

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
