package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NominalLifetime is the server-side lifetime the backend advertises for a
// freshly issued bearer token.
const NominalLifetime = 7 * 24 * time.Hour

// DefaultTolerance bounds how far a token's derived lifetime may deviate from
// NominalLifetime before the deviation is reported.
const DefaultTolerance = time.Hour

// ErrNoExpiry is returned when neither persisted metadata nor the token itself
// yields an expiry instant.
var ErrNoExpiry = errors.New("token expiry not derivable")

// ErrExpired is returned when the resolved expiry lies in the past.
var ErrExpired = errors.New("token expired")

// ErrNotClaimsBearing is returned when the token cannot be decoded as a JWT.
var ErrNotClaimsBearing = errors.New("token does not carry decodable claims")

// LifetimeError reports a derived token lifetime outside the accepted
// tolerance around NominalLifetime. It is advisory: callers decide whether it
// blocks anything.
type LifetimeError struct {
	Lifetime time.Duration
	Nominal  time.Duration
}

func (e *LifetimeError) Error() string {
	return fmt.Sprintf("token lifetime %s deviates from nominal %s", e.Lifetime, e.Nominal)
}

// Metadata is the resolved issued-at/expiry pair for a bearer token. IssuedAt
// may be zero when only an expiry is known.
type Metadata struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether an expiry instant was resolved.
func (m Metadata) HasExpiry() bool {
	return !m.ExpiresAt.IsZero()
}

// Lifetime returns expiry minus issued-at, or zero when issued-at is unknown.
func (m Metadata) Lifetime() time.Duration {
	if m.IssuedAt.IsZero() || m.ExpiresAt.IsZero() {
		return 0
	}
	return m.ExpiresAt.Sub(m.IssuedAt)
}

// Decode extracts issued-at and expiry claims from a claims-bearing token
// without verifying its signature. Signature verification is the server's
// job; the client only needs the timestamps.
func Decode(raw string) (Metadata, error) {
	if raw == "" {
		return Metadata{}, ErrNotClaimsBearing
	}

	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrNotClaimsBearing, err)
	}

	var meta Metadata
	if claims.IssuedAt != nil {
		meta.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		meta.ExpiresAt = claims.ExpiresAt.Time
	}
	if !meta.HasExpiry() {
		return Metadata{}, ErrNoExpiry
	}
	return meta, nil
}

// Resolve produces the authoritative metadata for a token. Expiry persisted at
// login time wins; decoded claims are the fallback; with neither, ErrNoExpiry.
func Resolve(persisted Metadata, raw string) (Metadata, error) {
	if persisted.HasExpiry() {
		meta := persisted
		if meta.IssuedAt.IsZero() {
			// The claims may still supply issued-at even when expiry
			// came from the session payload.
			if decoded, err := Decode(raw); err == nil && !decoded.IssuedAt.IsZero() {
				meta.IssuedAt = decoded.IssuedAt
			}
		}
		return meta, nil
	}

	decoded, err := Decode(raw)
	if err != nil {
		return Metadata{}, ErrNoExpiry
	}
	return decoded, nil
}

// Validate checks the resolved metadata against the clock and the nominal
// lifetime. A hard failure (ErrNoExpiry, ErrExpired) means the token must not
// be used. A *LifetimeError means the token is usable but its lifetime is
// outside tolerance; callers surface it as a warning.
func Validate(meta Metadata, now time.Time, nominal, tolerance time.Duration) error {
	if !meta.HasExpiry() {
		return ErrNoExpiry
	}
	if !meta.ExpiresAt.After(now) {
		return ErrExpired
	}
	if nominal <= 0 {
		nominal = NominalLifetime
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if lifetime := meta.Lifetime(); lifetime != 0 {
		delta := lifetime - nominal
		if delta < 0 {
			delta = -delta
		}
		if delta > tolerance {
			return &LifetimeError{Lifetime: lifetime, Nominal: nominal}
		}
	}
	return nil
}

// Expired reports whether the resolved expiry for raw has passed. Tokens with
// no derivable expiry are treated as expired: a token the client cannot bound
// is never sent on protected requests.
func Expired(persisted Metadata, raw string, now time.Time) bool {
	meta, err := Resolve(persisted, raw)
	if err != nil {
		return true
	}
	return !meta.ExpiresAt.After(now)
}
