package flows

import "context"

// UnlockErrors carries host-level sentinel errors used by the local unlock
// strategies.
type UnlockErrors struct {
	NoSavedSession          error
	IncorrectPin            error
	BiometricsUnavailable   error
	BiometricsNotConfigured error
}

// PINDeps wires the PIN strategy to the credential store and hasher.
type PINDeps struct {
	PINHash func(ctx context.Context) (string, bool, error)
	Verify  func(pin, hash string) (bool, error)
	Errors  UnlockErrors
}

// RunPINUnlock verifies a PIN against the stored hash. Entirely local: the
// PIN only gates the already-issued token, so unlocking works offline.
func RunPINUnlock(ctx context.Context, pin string, d PINDeps) error {
	hash, ok, err := d.PINHash(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return d.Errors.NoSavedSession
	}

	match, err := d.Verify(pin, hash)
	if err != nil {
		return err
	}
	if !match {
		return d.Errors.IncorrectPin
	}
	return nil
}

// BiometricDeps wires the biometric strategy to the enrollment flag and the
// platform prompt.
type BiometricDeps struct {
	Enrolled func(ctx context.Context) (bool, error)
	// Prompt shows the platform biometric dialog. A nil Prompt means the
	// platform has no biometric capability. The prompt's own error is
	// surfaced unchanged so cancellation stays distinguishable from
	// hardware absence.
	Prompt func(ctx context.Context, message string) error
	Errors UnlockErrors
}

// RunBiometricUnlock gates the stored token behind the platform biometric
// check.
func RunBiometricUnlock(ctx context.Context, message string, d BiometricDeps) error {
	enrolled, err := d.Enrolled(ctx)
	if err != nil {
		return err
	}
	if !enrolled {
		return d.Errors.BiometricsNotConfigured
	}
	if d.Prompt == nil {
		return d.Errors.BiometricsUnavailable
	}
	return d.Prompt(ctx, message)
}
