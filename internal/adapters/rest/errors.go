package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketplace-auction-service/internal/domain/shared"

	"github.com/go-playground/validator/v10"
)

const (
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal"
)

// statusFor maps a domain error kind to its HTTP status
func statusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindInvalidState, shared.KindConflict:
		return http.StatusConflict
	case shared.KindInvalidArgument:
		return http.StatusBadRequest
	case shared.KindTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondErrorCode(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// respondError writes a domain error. Anything that is not a domain error is
// reported as an internal error without leaking its text.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := shared.KindOf(err)
	if kind == "" {
		h.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondErrorCode(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	if shared.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	respondErrorCode(w, statusFor(kind), string(kind), err.Error())
}

func invalidArgument(message string) error {
	return &shared.Error{Kind: shared.KindInvalidArgument, Message: message}
}

// validationError joins every failed field into one invalid-argument message
func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return invalidArgument("request body is not valid")
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fmt.Sprintf("'%s': %s", fe.Field(), fieldMessage(fe)))
	}
	return invalidArgument(strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "should be at most " + fe.Param() + " characters"
	case "uuid":
		return "should be a valid uuid"
	}
	return "incorrect value passed"
}
