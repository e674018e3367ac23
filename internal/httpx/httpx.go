// Package httpx carries the small JSON response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the JSON shape of every failure response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError maps err through the apperr taxonomy. Untagged errors become an
// opaque 500 so internal details never leak to API consumers.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: err.Error()}
	if kind, ok := apperr.KindOf(err); ok {
		body.Code = kind.String()
	} else {
		body.Error = "internal error"
		body.Code = "internal"
	}
	WriteJSON(w, status, body)
}
