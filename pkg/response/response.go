package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"guidebook/internal/validation"
	"guidebook/pkg/apperror"
	"guidebook/pkg/logger"
)

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

// Error writes err as a JSON error response. Validation errors keep their
// field list; everything else is reduced to a status and a public message.
func Error(w http.ResponseWriter, err error) {
	var fieldErrs *validation.Errors
	if errors.As(err, &fieldErrs) {
		JSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	status := apperror.KindOf(err).Status()
	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("Request failed: %v", err)
	}
	JSON(w, status, map[string]string{"status": "error", "error": apperror.PublicMessage(err)})
}

// DecodeJSON decodes the request body into both dest and a raw field map,
// so validators can tell absent fields from zero values.
func DecodeJSON(r *http.Request, dest interface{}) (validation.Fields, error) {
	if r.Body == nil {
		return nil, apperror.New(apperror.InvalidInput, "request body is required")
	}
	defer r.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, apperror.Wrap(apperror.InvalidInput, err, "Invalid request body")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, apperror.Wrap(apperror.InvalidInput, err, "Invalid request body")
	}
	var fields validation.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperror.Wrap(apperror.InvalidInput, err, "Invalid request body")
	}
	return fields, nil
}
