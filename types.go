package gnauth

import (
	"context"
	"time"
)

// AuthMethod names the mechanism that most recently verified identity.
type AuthMethod string

const (
	// MethodNone means no mechanism has verified identity.
	MethodNone AuthMethod = "none"
	// MethodPassword is the server-verified password flow.
	MethodPassword AuthMethod = "password"
	// MethodPin is the local PIN unlock.
	MethodPin AuthMethod = "pin"
	// MethodBiometric is the platform biometric unlock.
	MethodBiometric AuthMethod = "biometric"
	// MethodToken is the one-time-token deep-link hand-off.
	MethodToken AuthMethod = "token"
)

// MembershipSnapshot is the membership tier data embedded in the user record.
type MembershipSnapshot struct {
	Tier      string
	Status    string
	ExpiresAt time.Time
}

// User is the authenticated identity.
type User struct {
	ID          int64
	Email       string
	Nicename    string
	DisplayName string
	AvatarURL   string
	Membership  *MembershipSnapshot
}

// MemberQRCode is the credential-derived artifact vendors scan for member
// discounts. It is set only by a successful login and survives lock/unlock
// untouched.
type MemberQRCode struct {
	Token     string
	Payload   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is the authoritative in-memory record of who is logged in, by what
// method, and whether the session is currently locked. Snapshots returned by
// the orchestrator are value copies; mutating one has no effect.
type Session struct {
	IsAuthenticated bool
	// IsLocked means authenticated but requiring PIN/biometric
	// re-verification before protected actions. Locked implies
	// authenticated; the two are otherwise independent axes.
	IsLocked  bool
	IsLoading bool

	User       *User
	AuthMethod AuthMethod

	// HasPasswordAuthenticated is true once the password flow has
	// succeeded at least once on this installation. It gates PIN
	// registration.
	HasPasswordAuthenticated bool

	// Err is the classified failure of the most recent operation, nil
	// after a success.
	Err *Error

	MemberQR *MemberQRCode
}

// Observer receives a session snapshot after every state transition.
type Observer func(Session)

// BiometricPrompt is the platform biometric capability. Implementations are
// selected per platform at build time; the engine never shape-sniffs for
// optional native modules.
//
// Authenticate blocks until the user passes, cancels, or the platform
// reports failure. Implementations must return ErrBiometricsCancelled for
// user dismissal and ErrBiometricsUnavailable when the hardware or OS
// support is absent, so the two stay distinguishable upstream.
type BiometricPrompt interface {
	Authenticate(ctx context.Context, message string) error
}
