package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, issuedAt, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{}
	if !issuedAt.IsZero() {
		claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestDecodeClaims(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	expires := issued.Add(NominalLifetime)

	meta, err := Decode(signedToken(t, issued, expires))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !meta.IssuedAt.Equal(issued) {
		t.Fatalf("issued-at = %v, want %v", meta.IssuedAt, issued)
	}
	if !meta.ExpiresAt.Equal(expires) {
		t.Fatalf("expiry = %v, want %v", meta.ExpiresAt, expires)
	}
}

func TestDecodeRejectsOpaqueToken(t *testing.T) {
	if _, err := Decode("not-a-jwt"); !errors.Is(err, ErrNotClaimsBearing) {
		t.Fatalf("expected ErrNotClaimsBearing, got %v", err)
	}
}

func TestDecodeRequiresExpiry(t *testing.T) {
	raw := signedToken(t, time.Unix(1700000000, 0), time.Time{})
	if _, err := Decode(raw); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}

func TestResolvePrefersPersistedExpiry(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	claimExpiry := issued.Add(NominalLifetime)
	persistedExpiry := issued.Add(48 * time.Hour)

	raw := signedToken(t, issued, claimExpiry)
	meta, err := Resolve(Metadata{ExpiresAt: persistedExpiry}, raw)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !meta.ExpiresAt.Equal(persistedExpiry) {
		t.Fatalf("expiry = %v, want persisted %v", meta.ExpiresAt, persistedExpiry)
	}
	if !meta.IssuedAt.Equal(issued) {
		t.Fatalf("issued-at should be backfilled from claims, got %v", meta.IssuedAt)
	}
}

func TestResolveFallsBackToClaims(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	expires := issued.Add(NominalLifetime)

	meta, err := Resolve(Metadata{}, signedToken(t, issued, expires))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !meta.ExpiresAt.Equal(expires) {
		t.Fatalf("expiry = %v, want %v", meta.ExpiresAt, expires)
	}
}

func TestResolveWithNothingFails(t *testing.T) {
	if _, err := Resolve(Metadata{}, "opaque"); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}

func TestValidateLifetime(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	now := issued.Add(time.Minute)

	tests := []struct {
		name      string
		meta      Metadata
		wantErr   error
		wantDrift bool
	}{
		{
			name: "nominal lifetime passes",
			meta: Metadata{IssuedAt: issued, ExpiresAt: issued.Add(604800 * time.Second)},
		},
		{
			name: "within tolerance passes",
			meta: Metadata{IssuedAt: issued, ExpiresAt: issued.Add(604800*time.Second + 30*time.Minute)},
		},
		{
			name:      "double lifetime drifts",
			meta:      Metadata{IssuedAt: issued, ExpiresAt: issued.Add(2 * 604800 * time.Second)},
			wantDrift: true,
		},
		{
			name:    "expired fails hard",
			meta:    Metadata{IssuedAt: issued.Add(-NominalLifetime), ExpiresAt: issued.Add(-time.Hour)},
			wantErr: ErrExpired,
		},
		{
			name:    "no expiry fails hard",
			meta:    Metadata{IssuedAt: issued},
			wantErr: ErrNoExpiry,
		},
		{
			name: "unknown issued-at skips lifetime check",
			meta: Metadata{ExpiresAt: issued.Add(30 * 24 * time.Hour)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.meta, now, NominalLifetime, DefaultTolerance)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got %v, want %v", err, tc.wantErr)
				}
				return
			}
			if tc.wantDrift {
				var drift *LifetimeError
				if !errors.As(err, &drift) {
					t.Fatalf("expected LifetimeError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	raw := signedToken(t, issued, issued.Add(NominalLifetime))

	if Expired(Metadata{}, raw, issued.Add(time.Hour)) {
		t.Fatal("fresh token reported expired")
	}
	if !Expired(Metadata{}, raw, issued.Add(NominalLifetime+time.Second)) {
		t.Fatal("stale token reported fresh")
	}
	if !Expired(Metadata{}, "opaque", issued) {
		t.Fatal("unbounded token must count as expired")
	}
}
