package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"lilinku-be/internal/logger"
	"lilinku-be/internal/order"
	"lilinku-be/internal/shipping"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
)

// payload is the courier's delivery-status push. Only the fields the core
// reads are modelled.
type payload struct {
	OrderID    string `json:"order_id"`
	AWB        string `json:"awb,omitempty"`
	Status     string `json:"status"`
	WaybillURL string `json:"waybill_url,omitempty"`
}

type Handler struct {
	OrderSvc order.Service
}

func NewHandler(orderSvc order.Service) *Handler {
	return &Handler{OrderSvc: orderSvc}
}

// ServeHTTP handles POST /webhooks/shipping. Unknown-order pushes are
// acknowledged: sandbox noise must not cause provider-side retry storms.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if p.OrderID == "" {
		utils.WriteJSONError(w, "missing order_id", http.StatusBadRequest)
		return
	}

	res, err := h.OrderSvc.ApplyShipmentStatus(r.Context(), shipping.StatusPush{
		OrderNo:    p.OrderID,
		AWB:        p.AWB,
		StatusText: p.Status,
		WaybillURL: p.WaybillURL,
	})
	if err != nil {
		log.Error("shipment status application failed", zap.Error(err))
		utils.WriteJSONError(w, "update failed", http.StatusInternalServerError)
		return
	}

	if res.UnknownOrder {
		log.Warn("acknowledged status push for unknown provider order",
			zap.String("provider_order_no", p.OrderID),
		)
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
