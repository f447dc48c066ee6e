package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/GeorgeWebDevCy/gnauth/token"
)

// Store keys. The layout is flat so each credential artifact is independently
// settable and clearable.
const (
	KeyToken            = "session.token"
	KeyTokenIssuedAt    = "session.token_issued_at"
	KeyTokenExpiresAt   = "session.token_expires_at"
	KeyIdentity         = "session.identity"
	KeyLastMethod       = "session.last_method"
	KeyPasswordProven   = "session.password_proven"
	KeyPINHash          = "unlock.pin_hash"
	KeyBiometricEnabled = "unlock.biometric_enabled"
	KeyPasswordFallback = "unlock.password_fallback"
	KeyLockboxKey       = "device.lockbox_key"
	KeyInstallID        = "device.install_id"
)

// PersistedSession is the durable counterpart of the in-memory session,
// assembled from individual store keys.
type PersistedSession struct {
	Token                    string
	TokenMeta                token.Metadata
	Identity                 string
	LastMethod               string
	PINRegistered            bool
	BiometricEnabled         bool
	HasPasswordAuthenticated bool
}

// Vault layers typed accessors over a Store. All methods are thin pass-through
// reads/writes; policy lives in the orchestrator.
type Vault struct {
	store Store
}

// NewVault wraps s.
func NewVault(s Store) *Vault {
	return &Vault{store: s}
}

// Token returns the persisted bearer token, if any.
func (v *Vault) Token(ctx context.Context) (string, bool, error) {
	return v.store.Get(ctx, KeyToken)
}

// SaveToken persists the bearer token together with its expiry metadata.
func (v *Vault) SaveToken(ctx context.Context, raw string, meta token.Metadata) error {
	if err := v.store.Set(ctx, KeyToken, raw); err != nil {
		return err
	}
	if !meta.IssuedAt.IsZero() {
		if err := v.store.Set(ctx, KeyTokenIssuedAt, strconv.FormatInt(meta.IssuedAt.Unix(), 10)); err != nil {
			return err
		}
	} else if err := v.store.Delete(ctx, KeyTokenIssuedAt); err != nil {
		return err
	}
	if !meta.ExpiresAt.IsZero() {
		if err := v.store.Set(ctx, KeyTokenExpiresAt, strconv.FormatInt(meta.ExpiresAt.Unix(), 10)); err != nil {
			return err
		}
	} else if err := v.store.Delete(ctx, KeyTokenExpiresAt); err != nil {
		return err
	}
	return nil
}

// TokenMetadata returns the persisted expiry metadata for the current token.
// Missing fields come back zero.
func (v *Vault) TokenMetadata(ctx context.Context) (token.Metadata, error) {
	var meta token.Metadata

	if raw, ok, err := v.store.Get(ctx, KeyTokenIssuedAt); err != nil {
		return meta, err
	} else if ok {
		if sec, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			meta.IssuedAt = time.Unix(sec, 0)
		}
	}
	if raw, ok, err := v.store.Get(ctx, KeyTokenExpiresAt); err != nil {
		return meta, err
	} else if ok {
		if sec, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			meta.ExpiresAt = time.Unix(sec, 0)
		}
	}
	return meta, nil
}

// Identity returns the identifier the current token was obtained with.
func (v *Vault) Identity(ctx context.Context) (string, bool, error) {
	return v.store.Get(ctx, KeyIdentity)
}

// SaveIdentity persists the login identifier.
func (v *Vault) SaveIdentity(ctx context.Context, identity string) error {
	return v.store.Set(ctx, KeyIdentity, identity)
}

// LastMethod returns the auth method that most recently verified identity.
func (v *Vault) LastMethod(ctx context.Context) (string, bool, error) {
	return v.store.Get(ctx, KeyLastMethod)
}

// SaveLastMethod records the auth method that most recently verified identity.
func (v *Vault) SaveLastMethod(ctx context.Context, method string) error {
	return v.store.Set(ctx, KeyLastMethod, method)
}

// HasPasswordAuthenticated reports whether the password flow has succeeded at
// least once on this installation.
func (v *Vault) HasPasswordAuthenticated(ctx context.Context) (bool, error) {
	raw, ok, err := v.store.Get(ctx, KeyPasswordProven)
	if err != nil {
		return false, err
	}
	return ok && raw == "1", nil
}

// MarkPasswordAuthenticated records a successful password login.
func (v *Vault) MarkPasswordAuthenticated(ctx context.Context) error {
	return v.store.Set(ctx, KeyPasswordProven, "1")
}

// PINHash returns the stored PIN hash, if registered.
func (v *Vault) PINHash(ctx context.Context) (string, bool, error) {
	return v.store.Get(ctx, KeyPINHash)
}

// SavePINHash registers (or rotates) the PIN hash.
func (v *Vault) SavePINHash(ctx context.Context, hash string) error {
	return v.store.Set(ctx, KeyPINHash, hash)
}

// ClearPIN removes the PIN hash.
func (v *Vault) ClearPIN(ctx context.Context) error {
	return v.store.Delete(ctx, KeyPINHash)
}

// BiometricEnabled reports whether biometric unlock has been enrolled.
func (v *Vault) BiometricEnabled(ctx context.Context) (bool, error) {
	raw, ok, err := v.store.Get(ctx, KeyBiometricEnabled)
	if err != nil {
		return false, err
	}
	return ok && raw == "1", nil
}

// SetBiometricEnabled flips biometric enrollment.
func (v *Vault) SetBiometricEnabled(ctx context.Context, enabled bool) error {
	if !enabled {
		return v.store.Delete(ctx, KeyBiometricEnabled)
	}
	return v.store.Set(ctx, KeyBiometricEnabled, "1")
}

// SealPasswordFallback encrypts and stores the password under the device
// lockbox key, creating the key on first use.
func (v *Vault) SealPasswordFallback(ctx context.Context, password string) error {
	key, err := v.lockboxKey(ctx)
	if err != nil {
		return err
	}
	sealed, err := lockboxSeal(key, password)
	if err != nil {
		return err
	}
	return v.store.Set(ctx, KeyPasswordFallback, sealed)
}

// PasswordFallback decrypts the stored password fallback, if present.
func (v *Vault) PasswordFallback(ctx context.Context) (string, bool, error) {
	sealed, ok, err := v.store.Get(ctx, KeyPasswordFallback)
	if err != nil || !ok {
		return "", false, err
	}
	key, err := v.lockboxKey(ctx)
	if err != nil {
		return "", false, err
	}
	plaintext, err := lockboxOpen(key, sealed)
	if err != nil {
		return "", false, err
	}
	return plaintext, true, nil
}

// ClearPasswordFallback removes the sealed password.
func (v *Vault) ClearPasswordFallback(ctx context.Context) error {
	return v.store.Delete(ctx, KeyPasswordFallback)
}

// InstallID returns the stable per-installation identifier, generating it on
// first use.
func (v *Vault) InstallID(ctx context.Context) (string, error) {
	id, ok, err := v.store.Get(ctx, KeyInstallID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	id = uuid.NewString()
	if err := v.store.Set(ctx, KeyInstallID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Snapshot assembles the full persisted session for cold-start hydration.
func (v *Vault) Snapshot(ctx context.Context) (PersistedSession, error) {
	var ps PersistedSession

	tok, ok, err := v.Token(ctx)
	if err != nil {
		return ps, err
	}
	if ok {
		ps.Token = tok
		if ps.TokenMeta, err = v.TokenMetadata(ctx); err != nil {
			return ps, err
		}
	}
	if identity, ok, err := v.Identity(ctx); err != nil {
		return ps, err
	} else if ok {
		ps.Identity = identity
	}
	if method, ok, err := v.LastMethod(ctx); err != nil {
		return ps, err
	} else if ok {
		ps.LastMethod = method
	}
	if _, ok, err := v.PINHash(ctx); err != nil {
		return ps, err
	} else {
		ps.PINRegistered = ok
	}
	if ps.BiometricEnabled, err = v.BiometricEnabled(ctx); err != nil {
		return ps, err
	}
	if ps.HasPasswordAuthenticated, err = v.HasPasswordAuthenticated(ctx); err != nil {
		return ps, err
	}
	return ps, nil
}

// ClearSession wipes the server-trust artifacts: token, expiry metadata,
// identity, and the password fallback. Device-local convenience settings
// (PIN hash, biometric flag, install ID) survive.
func (v *Vault) ClearSession(ctx context.Context) error {
	for _, key := range []string{
		KeyToken,
		KeyTokenIssuedAt,
		KeyTokenExpiresAt,
		KeyIdentity,
		KeyLastMethod,
		KeyPasswordFallback,
	} {
		if err := v.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Wipe removes every artifact the vault manages, including device-local
// unlock settings.
func (v *Vault) Wipe(ctx context.Context) error {
	if err := v.ClearSession(ctx); err != nil {
		return err
	}
	for _, key := range []string{
		KeyPasswordProven,
		KeyPINHash,
		KeyBiometricEnabled,
		KeyLockboxKey,
		KeyInstallID,
	} {
		if err := v.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vault) lockboxKey(ctx context.Context) (string, error) {
	key, ok, err := v.store.Get(ctx, KeyLockboxKey)
	if err != nil {
		return "", err
	}
	if ok {
		return key, nil
	}
	key, err = newLockboxKey()
	if err != nil {
		return "", err
	}
	if err := v.store.Set(ctx, KeyLockboxKey, key); err != nil {
		return "", err
	}
	return key, nil
}
