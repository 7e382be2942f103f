package rpc

import (
	"errors"
	"net/http"

	"dipindex/native/index"
)

var (
	errSignatureRequired = errors.New("rpc: signature required")
	errSignatureInvalid  = errors.New("rpc: malformed signature")
	errSignatureMismatch = errors.New("rpc: signature does not match signer")
	errRateLimited       = errors.New("rpc: rate limit exceeded")
	errBodyRequired      = errors.New("rpc: request body required")
)

// APIError is the error body returned by every endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"requestId,omitempty"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errSignatureRequired), errors.Is(err, errSignatureInvalid), errors.Is(err, errSignatureMismatch):
		return "BadSignature"
	case errors.Is(err, errRateLimited):
		return "RateLimited"
	case errors.Is(err, errBodyRequired):
		return "InvalidRequest"
	}
	return index.Code(err)
}

// statusFor maps an error code onto an HTTP status. Domain rejections are
// reported as 422 so clients can tell them from transport problems.
func statusFor(code string, query bool) int {
	switch code {
	case "OK":
		return http.StatusOK
	case "InvalidRequest", "UnknownHandler":
		return http.StatusBadRequest
	case "BadSignature":
		return http.StatusUnauthorized
	case "Unauthorized":
		return http.StatusForbidden
	case "Paused":
		return http.StatusServiceUnavailable
	case "Conflict", "AlreadyExists":
		return http.StatusConflict
	case "RateLimited":
		return http.StatusTooManyRequests
	case "Internal":
		return http.StatusInternalServerError
	case "InvalidNode", "AccountNotFound", "MintNotFound":
		if query {
			return http.StatusNotFound
		}
	}
	return http.StatusUnprocessableEntity
}
