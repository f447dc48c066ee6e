package flows

import (
	"context"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
)

// PasswordDeps wires the password strategy to the backend boundary.
type PasswordDeps struct {
	Login func(ctx context.Context, identifier, password string) (*wpapi.LoginPayload, error)
	Now   func() time.Time

	// MissingToken is the host sentinel raised when the backend answers
	// 2xx without a usable token.
	MissingToken error
}

// RunPasswordLogin verifies a password against the backend. Route fallback
// and body sanitization happen inside the injected Login call.
func RunPasswordLogin(ctx context.Context, identifier, password string, d PasswordDeps) (*SessionUpdate, error) {
	payload, err := d.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, d.MissingToken
	}
	return updateFromPayload(payload, identifier, d.Now()), nil
}

// HandoffDeps wires the one-time-token strategy to the backend boundary.
type HandoffDeps struct {
	Exchange func(ctx context.Context, handoffToken string) (*wpapi.LoginPayload, error)
	Now      func() time.Time

	MissingToken error
}

// RunHandoffLogin redeems a one-time deep-link token for a full session.
func RunHandoffLogin(ctx context.Context, handoffToken string, d HandoffDeps) (*SessionUpdate, error) {
	payload, err := d.Exchange(ctx, handoffToken)
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, d.MissingToken
	}
	return updateFromPayload(payload, "", d.Now()), nil
}
