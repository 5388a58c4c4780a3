package membersdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clearcomply/membership/pkg/httpx"
)

// Error codes shared by the server and this SDK.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeInvalidRole         = "invalid_role"
	ErrorCodeUnauthorized        = "unauthorized"
	ErrorCodeNotAMember          = "not_a_member"
	ErrorCodeInsufficientRole    = "insufficient_role"
	ErrorCodeDuplicateMembership = "duplicate_membership"
	ErrorCodeInvalidTransition   = "invalid_transition"
	ErrorCodeLastOwner           = "last_owner"
	ErrorCodeVersionConflict     = "version_conflict"
	ErrorCodeNotFound            = "not_found"
	ErrorCodeStoreUnavailable    = "store_unavailable"
	ErrorCodeServerError         = "server_error"
)

// APIError is the typed form of the service's JSON error envelope. It is
// used both by the server to write HTTP responses and by this SDK to
// represent error responses it received.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g. "last_owner")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is malformed or missing
	// a required field.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidRole is returned when a role string is not one of the known
	// roles, or names a role the operation does not permit.
	ErrInvalidRole = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRole,
		Description: "unknown or disallowed role",
	}

	// ErrUnauthorized is returned when the bearer token is missing, invalid
	// or expired.
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "authentication required",
	}

	// ErrNotAMember is returned when the caller holds no active membership
	// in the client. It is deliberately indistinguishable from the client
	// not existing.
	ErrNotAMember = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotAMember,
		Description: "no active membership for this client",
	}

	// ErrInsufficientRole is returned when the caller is a member but their
	// role does not reach the level the operation requires.
	ErrInsufficientRole = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientRole,
		Description: "your role does not permit this operation",
	}

	// ErrDuplicateMembership is returned when the invitee already holds a
	// non-removed membership in the client.
	ErrDuplicateMembership = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeDuplicateMembership,
		Description: "a membership for this user already exists",
	}

	// ErrInvalidTransition is returned when the membership is not in a state
	// the operation applies to.
	ErrInvalidTransition = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeInvalidTransition,
		Description: "the membership is not in a state that allows this operation",
	}

	// ErrLastOwner is returned when the change would leave the client with
	// no accepted owner.
	ErrLastOwner = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeLastOwner,
		Description: "cannot remove or demote the last owner",
	}

	// ErrVersionConflict is returned when the record changed concurrently
	// and the request should be retried.
	ErrVersionConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeVersionConflict,
		Description: "the record was modified concurrently, retry the request",
	}

	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "record not found",
	}

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached.
	ErrStoreUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeStoreUnavailable,
		Description: "the membership store is unavailable",
	}

	// ErrServerError is the fallback for unexpected failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError creates an APIError with a custom description while keeping
// the standard envelope.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// parseErrorResponse turns a non-2xx HTTP response into a typed *APIError.
// Returns nil for success responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
