package gnauth

import (
	"context"
	"errors"

	"github.com/GeorgeWebDevCy/gnauth/internal/flows"
	"github.com/GeorgeWebDevCy/gnauth/pin"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// LoginWithPIN verifies the PIN against the stored hash and unlocks the
// session. Verification is entirely local; the PIN gates the already-issued
// token, so unlocking works offline. A rejected PIN leaves the auth method
// and lock state untouched.
func (o *Orchestrator) LoginWithPIN(ctx context.Context, pinCode string) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	err := flows.RunPINUnlock(ctx, pinCode, flows.PINDeps{
		PINHash: o.vault.PINHash,
		Verify:  o.hasher.Verify,
		Errors:  o.unlockErrors(),
	})
	if err != nil {
		o.metrics.Inc(MetricPinUnlockFailure)
		return o.failOp(ctx, "unlock.pin", MethodPin, classify(err))
	}

	if classified := o.completeUnlock(ctx, MethodPin); classified != nil {
		o.metrics.Inc(MetricPinUnlockFailure)
		return o.failOp(ctx, "unlock.pin", MethodPin, classified)
	}

	o.metrics.Inc(MetricPinUnlockSuccess)
	o.emitAudit(ctx, "unlock.pin", MethodPin, true, nil)
	return nil
}

// LoginWithBiometrics runs the platform biometric prompt and unlocks the
// session on success. Cancellation is recoverable: it surfaces as
// ErrBiometricsCancelled without an audit failure record.
func (o *Orchestrator) LoginWithBiometrics(ctx context.Context, message string) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	deps := flows.BiometricDeps{
		Enrolled: o.vault.BiometricEnabled,
		Errors:   o.unlockErrors(),
	}
	if o.prompt != nil {
		deps.Prompt = o.prompt.Authenticate
	}

	if err := flows.RunBiometricUnlock(ctx, message, deps); err != nil {
		classified := classifyBiometric(err)
		if classified.Code == CodeBiometricsCancelled {
			o.metrics.Inc(MetricBiometricCancelled)
			o.mu.Lock()
			o.session.Err = classified
			snapshot := cloneSession(o.session)
			o.mu.Unlock()
			o.notify(snapshot)
			return classified
		}
		o.metrics.Inc(MetricBiometricUnlockFailure)
		return o.failOp(ctx, "unlock.biometric", MethodBiometric, classified)
	}

	if classified := o.completeUnlock(ctx, MethodBiometric); classified != nil {
		o.metrics.Inc(MetricBiometricUnlockFailure)
		return o.failOp(ctx, "unlock.biometric", MethodBiometric, classified)
	}

	o.metrics.Inc(MetricBiometricUnlockSuccess)
	o.emitAudit(ctx, "unlock.biometric", MethodBiometric, true, nil)
	return nil
}

// RegisterPIN hashes and stores a new PIN. A password login must have
// succeeded on this installation first; the PIN only ever gates a session the
// password already established.
func (o *Orchestrator) RegisterPIN(ctx context.Context, pinCode string) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	proven, err := o.vault.HasPasswordAuthenticated(ctx)
	if err != nil {
		return o.failOp(ctx, "pin.register", MethodPin, classify(err))
	}
	if !proven {
		return o.failOp(ctx, "pin.register", MethodPin, ErrLoginBeforePinCreation)
	}
	if len(pinCode) < o.config.PIN.MinLength {
		return o.failOp(ctx, "pin.register", MethodPin, ErrPinTooShort)
	}

	hash, err := o.hasher.Hash(pinCode)
	if err != nil {
		if errors.Is(err, pin.ErrTooShort) {
			return o.failOp(ctx, "pin.register", MethodPin, ErrPinTooShort)
		}
		return o.failOp(ctx, "pin.register", MethodPin, classify(err))
	}
	if err := o.vault.SavePINHash(ctx, hash); err != nil {
		return o.failOp(ctx, "pin.register", MethodPin, classify(err))
	}

	o.clearErr()
	o.metrics.Inc(MetricPinRegistered)
	o.emitAudit(ctx, "pin.register", MethodPin, true, nil)
	return nil
}

// RemovePIN deletes the stored PIN hash. Idempotent.
func (o *Orchestrator) RemovePIN(ctx context.Context) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	if err := o.vault.ClearPIN(ctx); err != nil {
		return o.failOp(ctx, "pin.remove", MethodPin, classify(err))
	}

	o.clearErr()
	o.metrics.Inc(MetricPinRemoved)
	o.emitAudit(ctx, "pin.remove", MethodPin, true, nil)
	return nil
}

// SetBiometricsEnabled flips biometric enrollment. Enabling requires a
// platform prompt to have been injected at build time.
func (o *Orchestrator) SetBiometricsEnabled(ctx context.Context, enabled bool) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	if enabled && o.prompt == nil {
		return o.failOp(ctx, "biometrics.enroll", MethodBiometric, ErrBiometricsUnavailable)
	}
	if err := o.vault.SetBiometricEnabled(ctx, enabled); err != nil {
		return o.failOp(ctx, "biometrics.enroll", MethodBiometric, classify(err))
	}

	o.clearErr()
	o.emitAudit(ctx, "biometrics.enroll", MethodBiometric, true, nil)
	return nil
}

// RecoverWithStoredPassword replays the sealed password fallback through the
// full password flow, for installations where the PIN was forgotten but the
// fallback was enabled at login.
func (o *Orchestrator) RecoverWithStoredPassword(ctx context.Context) error {
	password, ok, err := o.vault.PasswordFallback(ctx)
	if err != nil {
		return classify(err)
	}
	identity, idOK, err := o.vault.Identity(ctx)
	if err != nil {
		return classify(err)
	}
	if !ok || !idOK {
		return ErrNoSavedSession
	}
	return o.LoginWithPassword(ctx, identity, password)
}

// completeUnlock finishes a successful local verification. A locked in-memory
// session unlocks in place; a cold start rehydrates from the vault, which
// requires an unexpired persisted token.
func (o *Orchestrator) completeUnlock(ctx context.Context, method AuthMethod) *Error {
	o.mu.Lock()
	inMemory := o.session.IsAuthenticated
	o.mu.Unlock()

	if inMemory {
		if err := o.vault.SaveLastMethod(ctx, string(method)); err != nil {
			return classify(err)
		}
		o.mu.Lock()
		o.session.IsLocked = false
		o.session.AuthMethod = method
		o.session.Err = nil
		snapshot := cloneSession(o.session)
		o.mu.Unlock()
		o.notify(snapshot)
		return nil
	}

	persisted, err := o.vault.Snapshot(ctx)
	if err != nil {
		return classify(err)
	}
	if persisted.Token == "" {
		return ErrNoSavedSession
	}
	if token.Expired(persisted.TokenMeta, persisted.Token, o.now()) {
		o.expireSession(ctx)
		return ErrTokenExpired
	}
	if err := o.vault.SaveLastMethod(ctx, string(method)); err != nil {
		return classify(err)
	}

	session := Session{
		IsAuthenticated:          true,
		AuthMethod:               method,
		HasPasswordAuthenticated: persisted.HasPasswordAuthenticated,
	}
	if persisted.Identity != "" {
		session.User = &User{Email: persisted.Identity}
	}
	o.publish(session)
	return nil
}

func (o *Orchestrator) unlockErrors() flows.UnlockErrors {
	return flows.UnlockErrors{
		NoSavedSession:          ErrNoSavedSession,
		IncorrectPin:            ErrIncorrectPin,
		BiometricsUnavailable:   ErrBiometricsUnavailable,
		BiometricsNotConfigured: ErrBiometricsNotConfigured,
	}
}

// classifyBiometric keeps prompt-level errors inside the biometric taxonomy:
// anything the prompt reports that is not already classified counts as the
// platform capability failing.
func classifyBiometric(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	if errors.Is(err, context.Canceled) {
		return ErrBiometricsCancelled
	}
	return ErrBiometricsUnavailable.WithRaw("%v", err)
}

// clearErr wipes the last operation error without touching auth state.
func (o *Orchestrator) clearErr() {
	o.mu.Lock()
	o.session.Err = nil
	snapshot := cloneSession(o.session)
	o.mu.Unlock()
	o.notify(snapshot)
}
