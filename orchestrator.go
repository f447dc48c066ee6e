package gnauth

import (
	"context"
	"sync"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/diagnostics"
	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/pin"
	"github.com/GeorgeWebDevCy/gnauth/store"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// Orchestrator is the auth state machine. It owns the in-memory session,
// serializes state-mutating operations, and persists credential artifacts
// through the vault. All exported methods are safe for concurrent use.
type Orchestrator struct {
	config  Config
	api     *wpapi.Client
	vault   *store.Vault
	hasher  *pin.Hasher
	prompt  BiometricPrompt
	audit   *auditDispatcher
	metrics *Metrics
	diag    *diagnostics.Runner
	now     func() time.Time

	// op serializes state-mutating auth operations. TryLock failure maps to
	// ErrOperationInFlight rather than queueing, so a double-tap cannot
	// stack two logins.
	op sync.Mutex

	mu             sync.Mutex
	session        Session
	observers      map[int]Observer
	nextObserverID int
}

// Session returns a snapshot of the current session. The snapshot is a value
// copy; mutating it has no effect on the engine.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneSession(o.session)
}

// Subscribe registers an observer called with a snapshot after every state
// transition, and returns its unsubscribe function. The observer runs on the
// mutating goroutine; keep it cheap.
func (o *Orchestrator) Subscribe(obs Observer) func() {
	o.mu.Lock()
	if o.observers == nil {
		o.observers = make(map[int]Observer)
	}
	id := o.nextObserverID
	o.nextObserverID++
	o.observers[id] = obs
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Metrics returns the engine's metrics handle.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// Close shuts down the audit dispatcher, draining buffered events. The
// orchestrator itself holds no other background resources.
func (o *Orchestrator) Close() {
	o.audit.Close()
}

// Lock moves an authenticated session into the locked state. Identity, user
// data, and the member QR code all survive; only protected actions are gated
// until a quick unlock succeeds. Locking an unauthenticated session is a
// no-op.
func (o *Orchestrator) Lock() {
	o.mu.Lock()
	if !o.session.IsAuthenticated || o.session.IsLocked {
		o.mu.Unlock()
		return
	}
	o.session.IsLocked = true
	o.session.Err = nil
	snapshot := cloneSession(o.session)
	o.mu.Unlock()

	o.notify(snapshot)
	o.metrics.Inc(MetricSessionLocked)
	o.emitAudit(context.Background(), "session.lock", snapshot.AuthMethod, true, nil)
}

// Logout discards the server-trust artifacts and returns the session to the
// unauthenticated baseline. The PIN hash and biometric enrollment survive so
// the next password login can go straight back to quick unlock. Idempotent.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	if err := o.vault.ClearSession(ctx); err != nil {
		return o.failOp(ctx, "session.logout", MethodNone, classify(err))
	}

	o.mu.Lock()
	wasAuthenticated := o.session.IsAuthenticated
	o.session = Session{
		AuthMethod:               MethodNone,
		HasPasswordAuthenticated: o.session.HasPasswordAuthenticated,
	}
	snapshot := cloneSession(o.session)
	o.mu.Unlock()

	o.notify(snapshot)
	if wasAuthenticated {
		o.metrics.Inc(MetricLogout)
		o.emitAudit(ctx, "session.logout", MethodNone, true, nil)
	}
	return nil
}

// SessionToken returns the persisted bearer token after checking its expiry.
// Expiry is checked on every call; an expired token never escapes as a stale
// value, the session drops to unauthenticated instead.
func (o *Orchestrator) SessionToken(ctx context.Context) (string, error) {
	raw, ok, err := o.vault.Token(ctx)
	if err != nil {
		return "", classify(err)
	}
	if !ok || raw == "" {
		return "", ErrTokenMissing
	}

	meta, err := o.vault.TokenMetadata(ctx)
	if err != nil {
		return "", classify(err)
	}
	if token.Expired(meta, raw, o.now()) {
		o.expireSession(ctx)
		return "", ErrTokenExpired
	}
	return raw, nil
}

// ValidateSession asks the backend whether the current bearer token is still
// accepted. Local expiry is checked first; a token the backend rejects drops
// the session to unauthenticated, same as local expiry.
func (o *Orchestrator) ValidateSession(ctx context.Context) error {
	bearer, err := o.SessionToken(ctx)
	if err != nil {
		return err
	}
	if err := o.api.ValidateToken(ctx, bearer); err != nil {
		classified := classify(err)
		if classified.Code == CodeUnauthorized {
			o.expireSession(ctx)
			return ErrTokenExpired.WithRaw("backend rejected token")
		}
		return classified
	}
	return nil
}

// Bootstrap hydrates the in-memory session from the credential store on cold
// start. A token issued within FreshBootstrapWindow resumes fully
// authenticated; an older valid token resumes locked when a quick-unlock
// method is registered; an expired or absent token resumes unauthenticated.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	if err := o.beginOp(); err != nil {
		return err
	}
	defer o.endOp()

	persisted, err := o.vault.Snapshot(ctx)
	if err != nil {
		return o.failOp(ctx, "session.bootstrap", MethodNone, classify(err))
	}

	baseline := Session{
		AuthMethod:               MethodNone,
		HasPasswordAuthenticated: persisted.HasPasswordAuthenticated,
	}

	if persisted.Token == "" {
		o.publish(baseline)
		return nil
	}

	now := o.now()
	if token.Expired(persisted.TokenMeta, persisted.Token, now) {
		if err := o.vault.ClearSession(ctx); err != nil {
			return o.failOp(ctx, "session.bootstrap", MethodNone, classify(err))
		}
		o.publish(baseline)
		return nil
	}

	method := AuthMethod(persisted.LastMethod)
	switch method {
	case MethodPassword, MethodPin, MethodBiometric, MethodToken:
	default:
		method = MethodPassword
	}

	session := Session{
		IsAuthenticated:          true,
		AuthMethod:               method,
		HasPasswordAuthenticated: persisted.HasPasswordAuthenticated,
	}
	if persisted.Identity != "" {
		session.User = &User{Email: persisted.Identity}
	}

	fresh := !persisted.TokenMeta.IssuedAt.IsZero() &&
		now.Sub(persisted.TokenMeta.IssuedAt) <= o.config.Session.FreshBootstrapWindow
	quickUnlock := persisted.PINRegistered || persisted.BiometricEnabled
	if !fresh && quickUnlock {
		session.IsLocked = true
	}

	o.publish(session)
	o.emitAudit(ctx, "session.bootstrap", method, true, nil)
	return nil
}

/*
====================================
INTERNAL STATE HELPERS
====================================
*/

func (o *Orchestrator) beginOp() error {
	if !o.op.TryLock() {
		return ErrOperationInFlight
	}
	return nil
}

func (o *Orchestrator) endOp() {
	o.op.Unlock()
}

// publish replaces the session wholesale and notifies observers.
func (o *Orchestrator) publish(session Session) {
	o.mu.Lock()
	o.session = session
	snapshot := cloneSession(session)
	o.mu.Unlock()
	o.notify(snapshot)
}

// setLoading flips the loading flag without touching the rest of the state.
func (o *Orchestrator) setLoading(loading bool) {
	o.mu.Lock()
	o.session.IsLoading = loading
	snapshot := cloneSession(o.session)
	o.mu.Unlock()
	o.notify(snapshot)
}

// failOp records a classified failure on the session, leaving the prior
// authentication state untouched, and returns the same error.
func (o *Orchestrator) failOp(ctx context.Context, event string, method AuthMethod, classified *Error) *Error {
	o.mu.Lock()
	o.session.IsLoading = false
	o.session.Err = classified
	snapshot := cloneSession(o.session)
	o.mu.Unlock()
	o.notify(snapshot)

	o.emitAudit(ctx, event, method, false, classified)
	return classified
}

// expireSession drops the session to unauthenticated after token expiry. The
// persisted token is cleared so the expired value cannot resurface.
func (o *Orchestrator) expireSession(ctx context.Context) {
	_ = o.vault.ClearSession(ctx)

	o.mu.Lock()
	o.session = Session{
		AuthMethod:               MethodNone,
		HasPasswordAuthenticated: o.session.HasPasswordAuthenticated,
		Err:                      ErrTokenExpired,
	}
	snapshot := cloneSession(o.session)
	o.mu.Unlock()

	o.notify(snapshot)
	o.emitAudit(ctx, "session.expired", MethodNone, false, ErrTokenExpired)
}

func (o *Orchestrator) notify(snapshot Session) {
	o.mu.Lock()
	observers := make([]Observer, 0, len(o.observers))
	for _, obs := range o.observers {
		observers = append(observers, obs)
	}
	o.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
}

func (o *Orchestrator) emitAudit(ctx context.Context, eventType string, method AuthMethod, success bool, failure *Error) {
	if o.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: o.now(),
		EventType: eventType,
		Method:    string(method),
		Success:   success,
	}
	if failure != nil {
		event.ErrorCode = string(failure.Code)
	}
	if id, err := o.vault.InstallID(ctx); err == nil {
		event.InstallID = id
	}
	o.mu.Lock()
	if o.session.User != nil {
		event.UserEmail = o.session.User.Email
	}
	o.mu.Unlock()

	o.audit.Emit(ctx, event)
}

func cloneSession(s Session) Session {
	if s.User != nil {
		user := *s.User
		if user.Membership != nil {
			membership := *user.Membership
			user.Membership = &membership
		}
		s.User = &user
	}
	if s.MemberQR != nil {
		qr := *s.MemberQR
		s.MemberQR = &qr
	}
	return s
}
