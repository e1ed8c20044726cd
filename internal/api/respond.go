package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourusername/edgecheck/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondErr maps domain errors onto HTTP status codes
func respondErr(w http.ResponseWriter, err error) {
	body := ErrorResponse{Error: err.Error()}
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		body.Code = validationErr.Code
	}
	respondJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, models.ErrInvalidRecord),
		errors.Is(err, models.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadySettled),
		errors.Is(err, models.ErrDuplicateKey),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.NewValidationError("invalid_body", err.Error())
	}
	return nil
}
