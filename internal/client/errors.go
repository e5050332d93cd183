package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"shop-admin-api/internal/models"
)

var (
	// ErrShopIDRequired is returned before any request when a shop-scoped
	// call has no shop id.
	ErrShopIDRequired = errors.New("Shop ID is required")
	// ErrIDRequired is returned before any request when a record id is empty.
	ErrIDRequired = errors.New("ID is required")
	// ErrSessionExpired means the tokens are gone and the user has to sign in again.
	ErrSessionExpired = errors.New("session expired, sign in again")
)

const fallbackMessage = "Something went wrong"

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []models.FieldError
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// parseAPIError builds an APIError from a response body. The message comes
// from the "error" or "message" field, or a short plain-text body.
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Message: fallbackMessage}

	var payload struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Code    string              `json:"code"`
		Fields  []models.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = payload.Code
		e.Fields = payload.Fields
		switch {
		case payload.Error != "":
			e.Message = payload.Error
		case payload.Message != "":
			e.Message = payload.Message
		}
		return e
	}

	text := strings.TrimSpace(string(body))
	if text != "" && utf8.ValidString(text) && len(text) <= 200 && !strings.ContainsAny(text, "<{") {
		e.Message = text
	}
	return e
}

// Message turns an error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	var verr *models.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrShopIDRequired), errors.Is(err, ErrIDRequired):
		return err.Error()
	default:
		return fallbackMessage
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
