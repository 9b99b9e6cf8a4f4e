package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lilinku-be/internal/logger"
	"lilinku-be/internal/order"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
)

// adminOrderAction routes /admin/orders/{orderNo}/{action}.
func (h *Handlers) AdminOrderAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/orders/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		utils.WriteJSONError(w, "missing order number or action", http.StatusBadRequest)
		return
	}
	orderNo, action := parts[0], parts[1]

	switch action {
	case "poll":
		h.pollPayment(w, r, orderNo)
	case "submit-shipment":
		h.submitShipment(w, r, orderNo)
	case "cancel":
		h.cancelOrder(w, r, orderNo)
	default:
		utils.WriteJSONError(w, "unknown action", http.StatusNotFound)
	}
}

func (h *Handlers) pollPayment(w http.ResponseWriter, r *http.Request, orderNo string) {
	res, err := h.OrderSvc.PollPaymentStatus(r.Context(), orderNo)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.Dispatcher.Dispatch(r.Context(), res.Followups)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"order_no": res.OrderNo,
		"status":   res.Status,
		"changed":  res.Changed,
	})
}

func (h *Handlers) submitShipment(w http.ResponseWriter, r *http.Request, orderNo string) {
	if err := h.OrderSvc.SubmitShipment(r.Context(), orderNo); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"order_no": orderNo, "result": "submitted"})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) cancelOrder(w http.ResponseWriter, r *http.Request, orderNo string) {
	var req cancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "cancelled by merchant"
	}

	if err := h.OrderSvc.Cancel(r.Context(), orderNo, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"order_no": orderNo, "result": "cancelled"})
}

// ----------------- Pickup -----------------

type pickupRequest struct {
	OrderNos []string  `json:"order_nos"`
	PickupAt time.Time `json:"pickup_at"`
	Vehicle  string    `json:"vehicle,omitempty"`
}

func (h *Handlers) AdminArrangePickup(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	res, err := h.OrderSvc.ArrangePickup(r.Context(), order.PickupInput{
		OrderNos: req.OrderNos,
		PickupAt: req.PickupAt,
		Vehicle:  req.Vehicle,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Partial success is expected: report per-order outcomes, never one
	// collapsed pass/fail.
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vehicle":   res.Vehicle,
		"schedule":  res.Schedule,
		"scheduled": res.Scheduled,
		"failed":    res.Failed,
	})
}

// ----------------- Listing / sweep -----------------

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	var status *order.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := order.OrderStatus(s)
		status = &st
	}

	orders, err := h.OrderSvc.ListOrders(r.Context(), status, 50, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": views})
}

func (h *Handlers) AdminSweep(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.OrderSvc.SweepPendingPayments(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("sweep failed", zap.Error(err))
		utils.WriteJSONError(w, "sweep failed", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]int{"resolved": resolved})
}
