package shipping

import "strings"

// DeliveryOutcome is the internal reading of a courier's free-text status.
type DeliveryOutcome int

const (
	DeliveryUnknown DeliveryOutcome = iota
	DeliveryShipped
	DeliveryDelivered
	DeliveryCancelled
)

// Keyword families, matched case-insensitively by substring. Delivered is
// checked before shipped so "terkirim"/"delivered" never falls into the
// shipped family first.
var (
	deliveredKeywords = []string{"deliver", "terkirim", "diterima", "received"}
	shippedKeywords   = []string{"pickup", "picked", "transit", "kirim", "shipped", "antar", "kurir"}
	cancelledKeywords = []string{"cancel", "batal", "retur", "return"}
)

// MapStatusText maps the courier's free-text delivery status to an internal
// outcome. Unrecognized text maps to DeliveryUnknown and must be ignored by
// the caller. The keyword set mirrors the courier's observed vocabulary and
// is deliberately isolated here so it can be revised in one place.
func MapStatusText(text string) DeliveryOutcome {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return DeliveryUnknown
	}

	for _, kw := range cancelledKeywords {
		if strings.Contains(s, kw) {
			return DeliveryCancelled
		}
	}
	for _, kw := range deliveredKeywords {
		if strings.Contains(s, kw) {
			return DeliveryDelivered
		}
	}
	for _, kw := range shippedKeywords {
		if strings.Contains(s, kw) {
			return DeliveryShipped
		}
	}
	return DeliveryUnknown
}
