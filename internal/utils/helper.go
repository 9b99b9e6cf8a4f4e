package utils

import (
	"encoding/json"
	"net/http"
	"strings"
)

func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// NormalizePhoneID converts an Indonesian phone number to the +62 form the
// providers expect.
func NormalizePhoneID(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")

	switch {
	case strings.HasPrefix(p, "+62"):
		return p
	case strings.HasPrefix(p, "62"):
		return "+" + p
	case strings.HasPrefix(p, "0"):
		return "+62" + p[1:]
	default:
		return p
	}
}
