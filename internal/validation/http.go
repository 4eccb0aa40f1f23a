package validation

import (
	"encoding/json"
	"net/http"
)

// Response is the body written for validation failures.
type Response struct {
	Errors []FieldError `json:"errors"`
}

// WriteHTTP writes err as a 400 response listing the failed fields.
func WriteHTTP(w http.ResponseWriter, err error) {
	fields := []FieldError{}
	if ve, ok := As(err); ok {
		fields = ve.Fields
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(Response{Errors: fields})
}
