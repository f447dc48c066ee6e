package gnauth

import (
	"context"
	"errors"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
)

// AccountRegistration is the input for RegisterAccount.
type AccountRegistration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterAccount creates a new account on the backend. Registration does not
// log the account in; the host follows up with LoginWithPassword. Returns the
// backend's sanitized confirmation message, if any.
func (o *Orchestrator) RegisterAccount(ctx context.Context, reg AccountRegistration) (string, error) {
	message, err := o.api.Register(ctx, wpapi.RegisterRequest{
		Username:  reg.Username,
		Email:     reg.Email,
		Password:  reg.Password,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	})
	if err != nil {
		return "", classify(err)
	}
	return message, nil
}

// RequestPasswordReset asks the backend to email a reset code. Stateless: the
// session never changes here.
func (o *Orchestrator) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	message, err := o.api.RequestPasswordReset(ctx, identifier)
	if err != nil {
		return "", classify(err)
	}
	return message, nil
}

// ResetPasswordWithCode redeems an emailed reset code for a new password. The
// stale password fallback, if any, is discarded; the next password login
// reseals the replacement.
func (o *Orchestrator) ResetPasswordWithCode(ctx context.Context, identifier, code, newPassword string) (string, error) {
	message, err := o.api.ConfirmPasswordReset(ctx, wpapi.ResetConfirmRequest{
		Identifier:  identifier,
		Code:        code,
		NewPassword: newPassword,
	})
	if err != nil {
		return "", classify(err)
	}
	_ = o.vault.ClearPasswordFallback(ctx)
	return message, nil
}

// ChangePassword changes the password for the authenticated user. A rejected
// current password surfaces as ErrPasswordMismatch rather than the generic
// invalid-credentials code, so the form can highlight the right field.
func (o *Orchestrator) ChangePassword(ctx context.Context, current, replacement string) (string, error) {
	if err := o.beginOp(); err != nil {
		return "", err
	}
	defer o.endOp()

	bearer, err := o.SessionToken(ctx)
	if err != nil {
		return "", err
	}

	message, err := o.api.ChangePassword(ctx, bearer, current, replacement)
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, ErrInvalidCredentials) {
			classified = ErrPasswordMismatch.WithRaw("%s", classified.Raw)
		}
		return "", o.failOp(ctx, "account.change_password", o.Session().AuthMethod, classified)
	}

	if o.config.Session.StorePasswordFallback {
		if err := o.vault.SealPasswordFallback(ctx, replacement); err != nil {
			return "", o.failOp(ctx, "account.change_password", o.Session().AuthMethod, classify(err))
		}
	} else {
		_ = o.vault.ClearPasswordFallback(ctx)
	}

	o.clearErr()
	o.metrics.Inc(MetricPasswordChanged)
	o.emitAudit(ctx, "account.change_password", o.Session().AuthMethod, true, nil)
	return message, nil
}
