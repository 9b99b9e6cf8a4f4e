package shipping

import (
	"context"
	"time"
)

// Vehicle classes accepted by the courier's pickup API.
const (
	VehicleMotor = "motor"
	VehicleMobil = "mobil"
	VehicleTruck = "truck"
)

// Auto-selection thresholds for pickup vehicles, in grams.
const (
	motorMaxWeight = 20_000
	mobilMaxWeight = 150_000
)

// SelectVehicle picks a vehicle class from the total shipment weight.
func SelectVehicle(totalWeightGrams int) string {
	switch {
	case totalWeightGrams <= motorMaxWeight:
		return VehicleMotor
	case totalWeightGrams <= mobilMaxWeight:
		return VehicleMobil
	default:
		return VehicleTruck
	}
}

// Party identifies one side of a shipment (shipper or receiver).
type Party struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	DistrictID    int
	SubdistrictID int
	PostalCode    string
}

type ManifestItem struct {
	Name        string
	Quantity    int
	WeightGrams int
	Price       int64
}

type ShipmentRequest struct {
	OrderNo  string
	Shipper  Party
	Receiver Party
	Items    []ManifestItem
	// DeclaredValue is the summed item subtotal. Shipping cost is not
	// insurable cargo value and must never be included.
	DeclaredValue int64
	Courier       string
	Service       string
	UseInsurance  bool
}

type PickupRequest struct {
	Schedule time.Time
	Vehicle  string
	OrderNos []string // provider order numbers
}

// PickupLine is the per-order outcome of a pickup batch. The batch is not
// atomic: some lines succeed while others fail.
type PickupLine struct {
	OrderNo string // provider order number
	OK      bool
	AWB     string
	Message string
}

// StatusPush is a delivery-status webhook payload from the courier.
type StatusPush struct {
	OrderNo    string // provider order number
	AWB        string
	StatusText string
	WaybillURL string
}

type Courier interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (providerOrderNo string, err error)
	RequestPickup(ctx context.Context, req PickupRequest) ([]PickupLine, error)
	CancelShipment(ctx context.Context, providerOrderNo, reason string) error
}
