package codapmeta

import (
	"errors"
	"strings"
)

// ErrorKind identifies exactly one failure family for a ClientError.
// Kinds are mutually exclusive; classification never produces two.
type ErrorKind string

const (
	// KindBadRequest maps 400 responses.
	KindBadRequest ErrorKind = "bad_request"
	// KindAuthenticationFailed maps 401 responses (missing or invalid bearer token).
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	// KindSessionExpired maps 403 responses (session no longer valid).
	KindSessionExpired ErrorKind = "session_expired"
	// KindMethodNotAllowed maps 405 responses.
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	// KindVersionNotSupported maps 406 responses to Accept-Version requests.
	KindVersionNotSupported ErrorKind = "version_not_supported"
	// KindServerError maps 500 responses.
	KindServerError ErrorKind = "server_error"
	// KindUnknownHTTP covers every other non-200 status.
	KindUnknownHTTP ErrorKind = "unknown_http"
	// KindTransport covers failures before any HTTP status exists: DNS,
	// connect, TLS, timeouts, canceled contexts.
	KindTransport ErrorKind = "transport"
	// KindMalformedResponse covers 200 responses whose body does not decode.
	KindMalformedResponse ErrorKind = "malformed_response"
)

const (
	// ErrorCodeBadRequest is returned for 400 responses.
	ErrorCodeBadRequest = "BAD_REQUEST"
	// ErrorCodeAuthenticationFailed is returned for 401 responses.
	// Wire-compatible with the relay's own error code; never change it.
	ErrorCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	// ErrorCodeSessionExpired is returned for 403 responses.
	// Wire-compatible with the relay's own error code; never change it.
	ErrorCodeSessionExpired = "SESSION_EXPIRED"
	// ErrorCodeMethodNotAllowed is returned for 405 responses.
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	// ErrorCodeVersionNotSupported is returned for 406 responses.
	ErrorCodeVersionNotSupported = "VERSION_NOT_SUPPORTED"
	// ErrorCodeServerError is returned for 500 responses.
	ErrorCodeServerError = "SERVER_ERROR"
	// ErrorCodeUnknownHTTP is returned for unmapped non-200 statuses.
	ErrorCodeUnknownHTTP = "UNKNOWN_HTTP_ERROR"
	// ErrorCodeTransportFailure is returned when transport I/O fails.
	ErrorCodeTransportFailure = "TRANSPORT_FAILURE"
	// ErrorCodeDecodeFailure is returned when a 200 body fails to decode.
	ErrorCodeDecodeFailure = "DECODE_FAILURE"
)

// ClientError is a structured metadata-request error that keeps the HTTP
// status, machine-readable code, and version-negotiation context intact as
// it flows across facade and CLI boundaries.
type ClientError struct {
	Kind       ErrorKind `json:"kind"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	// RequestedVersion and SupportedVersions are populated only for
	// KindVersionNotSupported; zero-valued for every other kind.
	RequestedVersion  string   `json:"requestedVersion,omitempty"`
	SupportedVersions []string `json:"supportedVersions,omitempty"`
	Cause             error    `json:"-"`
}

func (e *ClientError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	code := strings.TrimSpace(e.Code)
	switch {
	case msg == "" && code == "":
		return ErrorCodeUnknownHTTP
	case msg == "":
		return code
	default:
		return msg
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsClientError unwraps err to a *ClientError when one is in the chain.
func AsClientError(err error) (*ClientError, bool) {
	if err == nil {
		return nil, false
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr, true
	}
	return nil, false
}

// IsKind reports whether err carries a ClientError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	clientErr, ok := AsClientError(err)
	return ok && clientErr.Kind == kind
}

func newClientError(kind ErrorKind, code, message string, statusCode int, cause error) *ClientError {
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ClientError{
		Kind:       kind,
		Code:       code,
		Message:    cleanMsg,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

func errorCode(err error) string {
	if clientErr, ok := AsClientError(err); ok {
		return clientErr.Code
	}
	return ""
}
