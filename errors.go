package gnauth

import "fmt"

// Code is the stable machine-readable identifier carried by every
// user-facing failure. The presentation layer localizes by code; raw backend
// text is never matched against.
type Code string

const (
	// CodeInvalidCredentials is an invalid identifier/password pair.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeRouteNotFound is the backend's rest_no_route answer. It triggers
	// the query-string fallback and is surfaced only when the fallback
	// also fails.
	CodeRouteNotFound Code = "route_not_found"
	// CodeServerUnreachable covers transport-level failures.
	CodeServerUnreachable Code = "server_unreachable"
	// CodeRequestTimeout is an aborted request, distinct from a generic
	// network failure.
	CodeRequestTimeout Code = "request_timeout"
	// CodeMalformedServerResponse covers undecodable bodies and
	// HTML-wrapped fatal error pages.
	CodeMalformedServerResponse Code = "malformed_server_response"
	// CodeTokenMissing means no bearer token is persisted.
	CodeTokenMissing Code = "token_missing"
	// CodeTokenExpired means the persisted token's expiry has passed.
	CodeTokenExpired Code = "token_expired"
	// CodeTokenLifetimeMismatch is the soft warning for a derived lifetime
	// outside tolerance.
	CodeTokenLifetimeMismatch Code = "token_lifetime_mismatch"
	// CodeIncorrectPin is a PIN that does not match the stored hash.
	CodeIncorrectPin Code = "incorrect_pin"
	// CodePinTooShort rejects PINs below the minimum length.
	CodePinTooShort Code = "pin_too_short"
	// CodeNoSavedSession means quick unlock was attempted with nothing to
	// unlock.
	CodeNoSavedSession Code = "no_saved_session"
	// CodeBiometricsUnavailable means the platform has no biometric
	// capability.
	CodeBiometricsUnavailable Code = "biometrics_unavailable"
	// CodeBiometricsCancelled is a user-dismissed prompt; recoverable.
	CodeBiometricsCancelled Code = "biometrics_cancelled"
	// CodeBiometricsNotConfigured means biometric unlock was never
	// enrolled on this installation.
	CodeBiometricsNotConfigured Code = "biometrics_not_configured"
	// CodeLoginBeforePinCreation gates PIN registration on a prior
	// password login.
	CodeLoginBeforePinCreation Code = "login_before_pin_creation"
	// CodePasswordMismatch is a rejected current-password during change.
	CodePasswordMismatch Code = "password_mismatch"
	// CodeVendorTierRequired marks vendor-only operations.
	CodeVendorTierRequired Code = "vendor_tier_required"
	// CodeUnauthorized is a 401/403 from an authenticated endpoint.
	CodeUnauthorized Code = "unauthorized"
	// CodeOperationInFlight rejects a state-mutating auth operation while
	// another is running.
	CodeOperationInFlight Code = "operation_in_flight"
	// CodeStoreUnavailable is a credential-store persistence failure.
	CodeStoreUnavailable Code = "store_unavailable"
)

// Error is the classified failure type every public operation returns. The
// zero Message falls back to a per-code default; Raw carries developer-only
// detail and is never shown to users.
type Error struct {
	Code    Code
	Message string
	Raw     string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Is matches by code so errors.Is(err, ErrIncorrectPin) works on wrapped and
// detail-carrying instances alike.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// LocalizationKey is the stable translation lookup key for this failure.
func (e *Error) LocalizationKey() string {
	return "auth.error." + string(e.Code)
}

// WithRaw returns a copy carrying developer-only detail.
func (e *Error) WithRaw(format string, args ...any) *Error {
	clone := *e
	clone.Raw = fmt.Sprintf(format, args...)
	return &clone
}

// WithMessage returns a copy whose user-facing message is overridden, used
// when the backend supplies sanitized human-readable text.
func (e *Error) WithMessage(message string) *Error {
	clone := *e
	clone.Message = message
	return &clone
}

// Sentinel instances for errors.Is comparisons.
var (
	ErrInvalidCredentials       = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrRouteNotFound            = &Error{Code: CodeRouteNotFound, Message: "backend route not found"}
	ErrServerUnreachable        = &Error{Code: CodeServerUnreachable, Message: "server unreachable"}
	ErrRequestTimeout           = &Error{Code: CodeRequestTimeout, Message: "request timed out"}
	ErrMalformedServerResponse  = &Error{Code: CodeMalformedServerResponse, Message: "malformed server response"}
	ErrTokenMissing             = &Error{Code: CodeTokenMissing, Message: "no session token"}
	ErrTokenExpired             = &Error{Code: CodeTokenExpired, Message: "session token expired"}
	ErrTokenLifetimeMismatch    = &Error{Code: CodeTokenLifetimeMismatch, Message: "token lifetime outside tolerance"}
	ErrIncorrectPin             = &Error{Code: CodeIncorrectPin, Message: "incorrect pin"}
	ErrPinTooShort              = &Error{Code: CodePinTooShort, Message: "pin too short"}
	ErrNoSavedSession           = &Error{Code: CodeNoSavedSession, Message: "no saved session"}
	ErrBiometricsUnavailable    = &Error{Code: CodeBiometricsUnavailable, Message: "biometrics unavailable on this device"}
	ErrBiometricsCancelled      = &Error{Code: CodeBiometricsCancelled, Message: "biometric prompt cancelled"}
	ErrBiometricsNotConfigured  = &Error{Code: CodeBiometricsNotConfigured, Message: "biometric unlock not configured"}
	ErrLoginBeforePinCreation   = &Error{Code: CodeLoginBeforePinCreation, Message: "password login required before pin setup"}
	ErrPasswordMismatch         = &Error{Code: CodePasswordMismatch, Message: "current password incorrect"}
	ErrVendorTierRequired       = &Error{Code: CodeVendorTierRequired, Message: "vendor membership required"}
	ErrUnauthorized             = &Error{Code: CodeUnauthorized, Message: "not authorized"}
	ErrOperationInFlight        = &Error{Code: CodeOperationInFlight, Message: "another auth operation is in flight"}
	ErrStoreUnavailable         = &Error{Code: CodeStoreUnavailable, Message: "credential store unavailable"}
)
