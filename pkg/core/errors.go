// pkg/core/errors.go
package core

import (
	"encoding/json"
	"net/http"
)

// ErrorKind partitions every caller-visible failure. Each kind owns its HTTP
// status and the short machine-readable code in the response envelope.
type ErrorKind int

const (
	// CallerAuthError: bad or missing static secret. 401.
	CallerAuthError ErrorKind = iota
	// CallerInputError: missing required path or body field. 400.
	CallerInputError
	// PolicyViolation: authenticated but disallowed. Covers boundary-guard
	// rejections, no-billing-access, and model-not-allowed. 403.
	PolicyViolation
	// UpstreamConfigError: a required secret or URL is not configured. The
	// detail is for operators; callers see only the generic envelope. 500.
	UpstreamConfigError
	// UpstreamUnavailable: a backend call failed at the network layer. 502.
	UpstreamUnavailable
)

func (k ErrorKind) status() int {
	switch k {
	case CallerAuthError:
		return http.StatusUnauthorized
	case CallerInputError:
		return http.StatusBadRequest
	case PolicyViolation:
		return http.StatusForbidden
	case UpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) code() string {
	switch k {
	case CallerAuthError:
		return "Unauthorized"
	case CallerInputError:
		return "Bad Request"
	case PolicyViolation:
		return "Forbidden"
	case UpstreamUnavailable:
		return "Bad Gateway"
	default:
		return "Internal Server Error"
	}
}

// Error is a caller-visible gateway failure. Message and Hint must already be
// safe for callers: no secrets, no internal URLs, no stack traces.
type Error struct {
	Kind    ErrorKind
	Message string
	Hint    string
}

func (e *Error) Error() string { return e.Message }

// E builds a gateway error of the given kind.
func E(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// errorEnvelope is the single response shape for every rejection this gateway
// produces itself. Backend responses are relayed verbatim and never rewrapped.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError emits the JSON error envelope for kind.
func WriteError(w http.ResponseWriter, kind ErrorKind, message string) {
	WriteErr(w, E(kind, message))
}

// WriteErr emits the envelope for err; anything that is not a gateway *Error
// is reported as an internal failure with a generic message.
func WriteErr(w http.ResponseWriter, err error) {
	ge, ok := err.(*Error)
	if !ok {
		ge = E(UpstreamConfigError, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ge.Kind.status())
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:   ge.Kind.code(),
		Message: ge.Message,
		Hint:    ge.Hint,
	})
}
