package utilities

import (
	"encoding/json"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteValidation writes a 400 with the field -> code map.
func WriteValidation(w http.ResponseWriter, ve *apperr.ValidationError) {
	WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": ve.Fields})
}

// WriteRedirect tells the client which screen to go to next.
func WriteRedirect(w http.ResponseWriter, status int, screen string) {
	WriteJSON(w, status, map[string]string{"redirect": screen})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
