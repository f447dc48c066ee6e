package gnauth

import (
	"context"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/internal/flows"
	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// LoginWithPassword verifies identifier/password against the backend and, on
// success, replaces the session wholesale: authenticated, unlocked, method
// password. On failure the prior state is untouched; only Err changes.
func (o *Orchestrator) LoginWithPassword(ctx context.Context, identifier, password string) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	o.setLoading(true)
	start := o.now()

	update, err := flows.RunPasswordLogin(ctx, identifier, password, flows.PasswordDeps{
		Login:        o.api.LoginWithPassword,
		Now:          o.now,
		MissingToken: ErrMalformedServerResponse.WithRaw("login response carried no token"),
	})
	if err != nil {
		o.metrics.Inc(MetricLoginFailure)
		return o.failOp(ctx, "login.password", MethodPassword, classify(err))
	}

	if err := o.persistLogin(ctx, update, MethodPassword); err != nil {
		o.metrics.Inc(MetricLoginFailure)
		return o.failOp(ctx, "login.password", MethodPassword, classify(err))
	}
	if err := o.vault.MarkPasswordAuthenticated(ctx); err != nil {
		o.metrics.Inc(MetricLoginFailure)
		return o.failOp(ctx, "login.password", MethodPassword, classify(err))
	}
	if o.config.Session.StorePasswordFallback {
		if err := o.vault.SealPasswordFallback(ctx, password); err != nil {
			o.metrics.Inc(MetricLoginFailure)
			return o.failOp(ctx, "login.password", MethodPassword, classify(err))
		}
	}

	o.publish(sessionFromUpdate(update, MethodPassword, true))
	o.metrics.Inc(MetricLoginSuccess)
	o.metrics.ObserveLoginLatency(o.now().Sub(start))
	o.emitAudit(ctx, "login.password", MethodPassword, true, nil)
	return nil
}

// LoginWithToken redeems a one-time hand-off token minted by the web side of
// the membership site, yielding a full session without password entry.
func (o *Orchestrator) LoginWithToken(ctx context.Context, handoffToken string) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	o.setLoading(true)

	update, err := flows.RunHandoffLogin(ctx, handoffToken, flows.HandoffDeps{
		Exchange:     o.api.LoginWithHandoffToken,
		Now:          o.now,
		MissingToken: ErrMalformedServerResponse.WithRaw("hand-off response carried no token"),
	})
	if err != nil {
		o.metrics.Inc(MetricTokenLoginFailure)
		return o.failOp(ctx, "login.token", MethodToken, classify(err))
	}

	if err := o.persistLogin(ctx, update, MethodToken); err != nil {
		o.metrics.Inc(MetricTokenLoginFailure)
		return o.failOp(ctx, "login.token", MethodToken, classify(err))
	}

	hasPassword, err := o.vault.HasPasswordAuthenticated(ctx)
	if err != nil {
		o.metrics.Inc(MetricTokenLoginFailure)
		return o.failOp(ctx, "login.token", MethodToken, classify(err))
	}

	o.publish(sessionFromUpdate(update, MethodToken, hasPassword))
	o.metrics.Inc(MetricTokenLoginSuccess)
	o.emitAudit(ctx, "login.token", MethodToken, true, nil)
	return nil
}

// RefreshSession re-fetches the profile for the current token and updates the
// user record in place. The auth method and lock state never change here; a
// refresh is maintenance, not a login.
func (o *Orchestrator) RefreshSession(ctx context.Context) error {
	bearer, err := o.SessionToken(ctx)
	if err != nil {
		return err
	}

	payload, _, err := o.api.Profile(ctx, bearer)
	if err != nil {
		classified := classify(err)
		o.mu.Lock()
		o.session.Err = classified
		snapshot := cloneSession(o.session)
		o.mu.Unlock()
		o.notify(snapshot)
		return classified
	}

	o.mu.Lock()
	user := &User{
		ID:          payload.ID,
		Email:       payload.Email,
		DisplayName: payload.Name,
		AvatarURL:   payload.AvatarURL,
	}
	if m := payload.Membership; m != nil {
		user.Membership = membershipFromPayload(m)
	}
	if o.session.User != nil {
		if user.Email == "" {
			user.Email = o.session.User.Email
		}
		user.Nicename = o.session.User.Nicename
		if user.Membership == nil {
			user.Membership = o.session.User.Membership
		}
	}
	o.session.User = user
	o.session.Err = nil
	snapshot := cloneSession(o.session)
	o.mu.Unlock()

	o.notify(snapshot)
	o.metrics.Inc(MetricSessionRefreshed)
	return nil
}

// persistLogin writes the login artifacts to the vault. Expiry metadata is
// resolved against the token claims before storage so later expiry checks do
// not depend on re-decoding.
func (o *Orchestrator) persistLogin(ctx context.Context, update *flows.SessionUpdate, method AuthMethod) error {
	meta, err := token.Resolve(update.TokenMeta, update.Token)
	if err != nil {
		meta = update.TokenMeta
	}
	if err := o.vault.SaveToken(ctx, update.Token, meta); err != nil {
		return err
	}
	if update.Identity != "" {
		if err := o.vault.SaveIdentity(ctx, update.Identity); err != nil {
			return err
		}
	}
	return o.vault.SaveLastMethod(ctx, string(method))
}

func membershipFromPayload(m *wpapi.MembershipPayload) *MembershipSnapshot {
	snapshot := &MembershipSnapshot{Tier: m.Tier, Status: m.Status}
	if m.ExpiresAt > 0 {
		snapshot.ExpiresAt = time.Unix(m.ExpiresAt, 0)
	}
	return snapshot
}

// sessionFromUpdate maps a completed login flow onto the full session state.
func sessionFromUpdate(update *flows.SessionUpdate, method AuthMethod, hasPassword bool) Session {
	session := Session{
		IsAuthenticated:          true,
		AuthMethod:               method,
		HasPasswordAuthenticated: hasPassword,
		User: &User{
			ID:          update.User.ID,
			Email:       update.User.Email,
			Nicename:    update.User.Nicename,
			DisplayName: update.User.DisplayName,
			AvatarURL:   update.User.AvatarURL,
		},
	}
	if m := update.User.Membership; m != nil {
		session.User.Membership = &MembershipSnapshot{
			Tier:      m.Tier,
			Status:    m.Status,
			ExpiresAt: m.ExpiresAt,
		}
	}
	if qr := update.QR; qr != nil {
		session.MemberQR = &MemberQRCode{
			Token:     qr.Token,
			Payload:   qr.Payload,
			IssuedAt:  qr.IssuedAt,
			ExpiresAt: qr.ExpiresAt,
		}
	}
	return session
}
