package core

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrorCode classifies every non-success outcome of a gateway call.
type ErrorCode string

const (
	// ErrUnknownProvider indicates a registry lookup miss.
	ErrUnknownProvider ErrorCode = "unknown_provider"
	// ErrTransport indicates a connection or timeout failure before any
	// response was received.
	ErrTransport ErrorCode = "transport_error"
	// ErrAuth indicates the provider rejected the credentials (401/403).
	ErrAuth ErrorCode = "auth_error"
	// ErrRateLimited indicates the provider throttled the request (429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServer indicates an upstream provider failure (5xx).
	ErrServer ErrorCode = "server_error"
	// ErrProtocol indicates a response that does not match the expected
	// wire schema, or any other non-2xx status not covered above.
	ErrProtocol ErrorCode = "protocol_error"
	// ErrUnsupportedFeature indicates the request used a capability the
	// provider's wire format cannot express.
	ErrUnsupportedFeature ErrorCode = "unsupported_feature"
	// ErrInvalidRequest indicates the canonical request violated a
	// construction invariant before any dispatch was attempted.
	ErrInvalidRequest ErrorCode = "invalid_request"
)

// maxBodyExcerpt bounds how much of a provider error body is retained for
// diagnostics.
const maxBodyExcerpt = 2048

// GatewayError is the single error type returned by the gateway. It carries
// the provider id and, where available, a raw body excerpt so callers can
// decide on retry, provider fallback, or user-facing messaging.
type GatewayError struct {
	Code       ErrorCode `json:"code"`
	Provider   string    `json:"provider,omitempty"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Body       string    `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code to surface at the HTTP edge.
func (e *GatewayError) HTTPStatusCode() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	switch e.Code {
	case ErrUnknownProvider:
		return http.StatusNotFound
	case ErrAuth:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUnsupportedFeature, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrServer, ErrTransport, ErrProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the JSON shape served to HTTP clients.
func (e *GatewayError) ToJSON() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":     e.Code,
			"provider": e.Provider,
			"message":  e.Message,
		},
	}
}

// NewUnknownProviderError reports a registry lookup miss.
func NewUnknownProviderError(providerID string) *GatewayError {
	return &GatewayError{
		Code:     ErrUnknownProvider,
		Provider: providerID,
		Message:  fmt.Sprintf("no provider registered with id %q", providerID),
	}
}

// NewTransportError reports a connection or timeout failure.
func NewTransportError(provider string, err error) *GatewayError {
	return &GatewayError{
		Code:     ErrTransport,
		Provider: provider,
		Message:  "request failed: " + err.Error(),
		Err:      err,
	}
}

// NewProtocolError reports a response body that fails to parse into the
// expected schema.
func NewProtocolError(provider string, message string, body []byte, err error) *GatewayError {
	return &GatewayError{
		Code:     ErrProtocol,
		Provider: provider,
		Message:  message,
		Body:     excerpt(body),
		Err:      err,
	}
}

// NewUnsupportedFeatureError reports a statically-known capability mismatch.
func NewUnsupportedFeatureError(provider, message string) *GatewayError {
	return &GatewayError{
		Code:     ErrUnsupportedFeature,
		Provider: provider,
		Message:  message,
	}
}

// NewInvalidRequestError reports a canonical request invariant violation.
func NewInvalidRequestError(message string, err error) *GatewayError {
	return &GatewayError{
		Code:    ErrInvalidRequest,
		Message: message,
		Err:     err,
	}
}

// ClassifyHTTPError maps a non-2xx provider response to a typed error.
// The human-readable message is pulled out of the heterogeneous provider
// error bodies (all three wire formats nest it under "error.message");
// the raw excerpt is preserved for diagnostics either way.
func ClassifyHTTPError(provider string, statusCode int, body []byte) *GatewayError {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", statusCode)
	}

	var code ErrorCode
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		code = ErrAuth
	case statusCode == http.StatusTooManyRequests:
		code = ErrRateLimited
	case statusCode >= 500:
		code = ErrServer
	default:
		code = ErrProtocol
	}

	return &GatewayError{
		Code:       code,
		Provider:   provider,
		Message:    message,
		HTTPStatus: statusCode,
		Body:       excerpt(body),
	}
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}
