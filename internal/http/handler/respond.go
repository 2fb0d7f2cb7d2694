package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"foodguide/internal/guide"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"

	"github.com/go-playground/validator/v10"
)

const (
	CodeBadRequest          = "bad_request"
	CodeValidation          = "validation_error"
	CodeUnauthenticated     = "unauthenticated"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeInvalidState        = "invalid_state"
	CodeStaleGeneration     = "stale_generation"
	CodeEmptyResponse       = "empty_response"
	CodeMalformedResponse   = "malformed_response"
	CodeGenerationFailed    = "generation_failed"
	CodePersistenceFailed   = "persistence_failed"
	CodeTransactionConflict = "transaction_conflict"
	CodeInternal            = "internal_error"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeErr maps a domain error to its status and code. Messages of known
// errors are shown to the user as they are.
func writeErr(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "server error"
	}
	writeError(w, status, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, guide.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, guide.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, guide.ErrInvalidParams):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, orchestrator.ErrEmptyComment):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, orchestrator.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, session.ErrStaleGeneration):
		return http.StatusConflict, CodeStaleGeneration
	case errors.Is(err, guide.ErrTransactionConflict):
		return http.StatusConflict, CodeTransactionConflict
	case errors.Is(err, guide.ErrEmptyResponse):
		return http.StatusUnprocessableEntity, CodeEmptyResponse
	case errors.Is(err, guide.ErrMalformedResponse):
		return http.StatusBadGateway, CodeMalformedResponse
	case errors.Is(err, guide.ErrGeneration):
		return http.StatusBadGateway, CodeGenerationFailed
	case errors.Is(err, guide.ErrPersistence):
		return http.StatusInternalServerError, CodePersistenceFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// decode reads a JSON body into dst and validates it. On failure the error
// response is already written.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
