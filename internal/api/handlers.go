package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"lilinku-be/internal/auth"
	"lilinku-be/internal/config"
	"lilinku-be/internal/logger"
	"lilinku-be/internal/order"
	"lilinku-be/internal/shipping"
	"lilinku-be/internal/utils"

	"go.uber.org/zap"
)

const adminTokenTTL = 12 * time.Hour

type Handlers struct {
	Cfg        *config.Config
	OrderSvc   order.Service
	Rates      shipping.RateSource
	AuthRepo   auth.Repository
	Dispatcher *order.Dispatcher
}

func NewHandlers(
	cfg *config.Config,
	orderSvc order.Service,
	rates shipping.RateSource,
	authRepo auth.Repository,
	dispatcher *order.Dispatcher,
) *Handlers {
	return &Handlers{
		Cfg:        cfg,
		OrderSvc:   orderSvc,
		Rates:      rates,
		AuthRepo:   authRepo,
		Dispatcher: dispatcher,
	}
}

// ----------------- Checkout -----------------

type checkoutRequest struct {
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Address struct {
		Street        string `json:"street"`
		ProvinceID    int    `json:"province_id"`
		Province      string `json:"province"`
		CityID        int    `json:"city_id"`
		City          string `json:"city"`
		DistrictID    int    `json:"district_id"`
		District      string `json:"district"`
		SubdistrictID int    `json:"subdistrict_id"`
		Subdistrict   string `json:"subdistrict"`
		PostalCode    string `json:"postal_code"`
	} `json:"address"`
	Items []struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Shipping struct {
		Courier      string `json:"courier"`
		Service      string `json:"service"`
		UseInsurance bool   `json:"use_insurance"`
	} `json:"shipping"`
	Total int64 `json:"total"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	input := order.CheckoutInput{
		Customer: order.CustomerInput{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Address: order.AddressInput{
			Street:        req.Address.Street,
			ProvinceID:    req.Address.ProvinceID,
			Province:      req.Address.Province,
			CityID:        req.Address.CityID,
			City:          req.Address.City,
			DistrictID:    req.Address.DistrictID,
			District:      req.Address.District,
			SubdistrictID: req.Address.SubdistrictID,
			Subdistrict:   req.Address.Subdistrict,
			PostalCode:    req.Address.PostalCode,
		},
		Shipping: order.ShippingSelectionInput{
			Courier:      req.Shipping.Courier,
			Service:      req.Shipping.Service,
			UseInsurance: req.Shipping.UseInsurance,
		},
		ClientTotal: req.Total,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, order.CheckoutItemInput{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}

	res, err := h.OrderSvc.Checkout(r.Context(), input)
	if err != nil {
		logger.FromCtx(r.Context()).Error("checkout failed", zap.Error(err))

		// The order may already exist with a pending payment; tell the
		// caller so the UI can offer a retry.
		if res != nil && res.OrderNo != "" {
			utils.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":    "payment token request failed, retry later",
				"order_no": res.OrderNo,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"order_no":     res.OrderNo,
		"grand_total":  res.GrandTotal,
		"token":        res.Token,
		"redirect_url": res.RedirectURL,
	})
}

// ----------------- Order lookup -----------------

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNo := strings.TrimPrefix(r.URL.Path, "/orders/")
	if orderNo == "" {
		utils.WriteJSONError(w, "missing order number", http.StatusBadRequest)
		return
	}

	o, err := h.OrderSvc.GetOrder(r.Context(), orderNo)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, orderView(o))
}

// ----------------- Rate lookup proxy -----------------

func (h *Handlers) SearchDestinations(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("search")
	if keyword == "" {
		utils.WriteJSONError(w, "missing search keyword", http.StatusBadRequest)
		return
	}

	dests, err := h.Rates.SearchDestinations(r.Context(), keyword)
	if err != nil {
		utils.WriteJSONError(w, "destination lookup unavailable", http.StatusBadGateway)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"destinations": dests})
}

type ratesRequest struct {
	SubdistrictID int   `json:"subdistrict_id"`
	WeightGrams   int   `json:"weight_grams"`
	DeclaredValue int64 `json:"declared_value"`
}

func (h *Handlers) GetRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	options, err := h.Rates.GetRates(r.Context(), shipping.RateQuery{
		OriginDistrictID:         h.Cfg.Shipper.DistrictID,
		DestinationSubdistrictID: req.SubdistrictID,
		WeightGrams:              req.WeightGrams,
		DeclaredValue:            req.DeclaredValue,
	})
	if err != nil {
		utils.WriteJSONError(w, "rate lookup unavailable", http.StatusBadGateway)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"rates": options})
}

// ----------------- Admin login -----------------

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if !h.Cfg.IsAdminEmail(req.Email) {
		utils.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	admin, err := h.AuthRepo.GetAdminByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(admin.PasswordHash, req.Password) {
		utils.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateToken(admin.Email, utils.RoleAdmin, h.Cfg.JWTSecret, adminTokenTTL)
	if err != nil {
		utils.WriteJSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ----------------- views / error mapping -----------------

func orderView(o *order.Order) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]interface{}{
			"name":         it.Name,
			"quantity":     it.Quantity,
			"unit_price":   it.UnitPrice,
			"subtotal":     it.Subtotal,
			"weight_grams": it.WeightGrams,
		})
	}

	return map[string]interface{}{
		"order_no":          o.OrderNo,
		"status":            o.Status,
		"subtotal":          o.Subtotal,
		"shipping_cost":     o.ShippingCost,
		"insurance_amount":  o.InsuranceAmount,
		"service_fee":       o.ServiceFee,
		"grand_total":       o.GrandTotal,
		"courier":           o.Courier,
		"courier_service":   o.CourierService,
		"shipping_order_no": o.ShippingOrderNo,
		"awb_number":        o.AWBNumber,
		"waybill_url":       o.WaybillURL,
		"created_at":        o.CreatedAt,
		"items":             items,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	var notCancellable *order.NotCancellableError
	var precondition *order.PreconditionError
	var missing *order.MissingShippingOrderError
	var leadTime *order.LeadTimeError

	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrVariantNotFound),
		errors.Is(err, order.ErrRateNotFound),
		errors.Is(err, order.ErrEmptyCart):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &notCancellable),
		errors.As(err, &precondition),
		errors.As(err, &missing):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &leadTime):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		utils.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
