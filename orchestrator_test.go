package gnauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/store"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

const testExpiresIn = 7 * 24 * 60 * 60

func loginHandler(t *testing.T, expiresIn int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode login body: %v", err)
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if creds["password"] != "correct horse" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"code":"[jwt_auth] incorrect_password","message":"<strong>Error</strong>: the password is incorrect."}`)
			return
		}
		fmt.Fprintf(w, `{
			"token": "bearer-1",
			"user_id": 7,
			"user_email": "%s",
			"user_display_name": "Member Seven",
			"expires_in": %d,
			"membership": {"tier": "gold", "status": "active"},
			"member_qr": {"token": "qr-1", "payload": "QR:7", "issued_at": 1700000000, "expires_at": 1700604800}
		}`, creds["username"], expiresIn)
	}
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"test site","namespaces":["wp/v2","jwt-auth/v1","gn/v1"]}`)
	})
	mux.HandleFunc("/wp-json/jwt-auth/v1/token", loginHandler(t, testExpiresIn))
	mux.HandleFunc("/wp-json/jwt-auth/v1/token/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bearer-1" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"code":"jwt_auth_invalid_token","message":"Signature verification failed"}`)
			return
		}
		fmt.Fprint(w, `{"code":"jwt_auth_valid_token","data":{"status":200}}`)
	})
	mux.HandleFunc("/wp-json/wp/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bearer-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"rest_not_logged_in","message":"You are not currently logged in."}`)
			return
		}
		fmt.Fprint(w, `{"id":7,"name":"Member Seven","email":"seven@example.com","membership":{"tier":"gold","status":"active"}}`)
	})
	return mux
}

func newTestEngine(t *testing.T, handler http.Handler) *Orchestrator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.AllowInsecureHTTP = true
	cfg.Diagnostics.AdvanceDelay = 0
	cfg.Metrics.Enabled = true

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(store.NewMemory()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func mustLogin(t *testing.T, o *Orchestrator) {
	t.Helper()
	if err := o.LoginWithPassword(context.Background(), "seven@example.com", "correct horse"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLoginWithPasswordSuccess(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))

	mustLogin(t, o)

	s := o.Session()
	if !s.IsAuthenticated || s.IsLocked || s.IsLoading {
		t.Fatalf("unexpected session state: %+v", s)
	}
	if s.AuthMethod != MethodPassword {
		t.Fatalf("auth method = %s, want password", s.AuthMethod)
	}
	if !s.HasPasswordAuthenticated {
		t.Fatal("password flow success not recorded")
	}
	if s.Err != nil {
		t.Fatalf("unexpected session error: %v", s.Err)
	}
	if s.User == nil || s.User.Email != "seven@example.com" {
		t.Fatalf("user = %+v", s.User)
	}
	if s.User.Membership == nil || s.User.Membership.Tier != "gold" {
		t.Fatalf("membership = %+v", s.User.Membership)
	}
	if s.MemberQR == nil || s.MemberQR.Payload != "QR:7" {
		t.Fatalf("member QR = %+v", s.MemberQR)
	}

	bearer, err := o.SessionToken(context.Background())
	if err != nil {
		t.Fatalf("session token: %v", err)
	}
	if bearer != "bearer-1" {
		t.Fatalf("bearer = %q", bearer)
	}
}

func TestLoginFailureLeavesPriorStateUntouched(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	mustLogin(t, o)

	err := o.LoginWithPassword(context.Background(), "seven@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want invalid credentials", err)
	}

	s := o.Session()
	if !s.IsAuthenticated {
		t.Fatal("failed login tore down the existing session")
	}
	if s.Err == nil || s.Err.Code != CodeInvalidCredentials {
		t.Fatalf("session error = %+v", s.Err)
	}
	if s.Err.LocalizationKey() != "auth.error.invalid_credentials" {
		t.Fatalf("localization key = %q", s.Err.LocalizationKey())
	}
}

func TestLockPreservesIdentityAndQR(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	mustLogin(t, o)

	o.Lock()

	s := o.Session()
	if !s.IsAuthenticated || !s.IsLocked {
		t.Fatalf("lock state: %+v", s)
	}
	if s.User == nil || s.MemberQR == nil {
		t.Fatal("lock dropped user data or member QR")
	}

	// Locking again is a no-op.
	o.Lock()
	if got := o.Metrics().SnapshotNow().Counters[MetricSessionLocked]; got != 1 {
		t.Fatalf("lock counter = %d, want 1", got)
	}
}

func TestPinLifecycle(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	ctx := context.Background()

	if err := o.RegisterPIN(ctx, "2468"); !errors.Is(err, ErrLoginBeforePinCreation) {
		t.Fatalf("pre-login register: got %v", err)
	}

	mustLogin(t, o)

	if err := o.RegisterPIN(ctx, "12"); !errors.Is(err, ErrPinTooShort) {
		t.Fatalf("short pin: got %v", err)
	}
	if err := o.RegisterPIN(ctx, "2468"); err != nil {
		t.Fatalf("register pin: %v", err)
	}

	o.Lock()

	if err := o.LoginWithPIN(ctx, "9999"); !errors.Is(err, ErrIncorrectPin) {
		t.Fatalf("wrong pin: got %v", err)
	}
	s := o.Session()
	if !s.IsLocked {
		t.Fatal("wrong pin unlocked the session")
	}
	if s.AuthMethod != MethodPassword {
		t.Fatalf("wrong pin changed auth method to %s", s.AuthMethod)
	}

	if err := o.LoginWithPIN(ctx, "2468"); err != nil {
		t.Fatalf("correct pin: %v", err)
	}
	s = o.Session()
	if s.IsLocked {
		t.Fatal("correct pin left the session locked")
	}
	if s.AuthMethod != MethodPin {
		t.Fatalf("auth method = %s, want pin", s.AuthMethod)
	}
	if s.MemberQR == nil {
		t.Fatal("unlock dropped the member QR")
	}
}

func TestLogoutIsIdempotentAndKeepsQuickUnlock(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	ctx := context.Background()

	mustLogin(t, o)
	if err := o.RegisterPIN(ctx, "2468"); err != nil {
		t.Fatalf("register pin: %v", err)
	}

	if err := o.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	s := o.Session()
	if s.IsAuthenticated || s.IsLocked || s.User != nil || s.MemberQR != nil {
		t.Fatalf("post-logout session: %+v", s)
	}
	if s.AuthMethod != MethodNone {
		t.Fatalf("auth method = %s, want none", s.AuthMethod)
	}
	if !s.HasPasswordAuthenticated {
		t.Fatal("logout wiped the password-proven flag")
	}

	if _, err := o.SessionToken(ctx); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("token after logout: got %v", err)
	}
	if _, ok, err := o.vault.PINHash(ctx); err != nil || !ok {
		t.Fatalf("logout dropped the pin hash (ok=%v err=%v)", ok, err)
	}

	// Second logout is a no-op, not an error.
	if err := o.Logout(ctx); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestSessionTokenExpiryForcesReauth(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	ctx := context.Background()

	mustLogin(t, o)

	o.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	if _, err := o.SessionToken(ctx); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("stale token: got %v", err)
	}
	s := o.Session()
	if s.IsAuthenticated {
		t.Fatal("expired token left the session authenticated")
	}
	if _, err := o.SessionToken(ctx); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expired token still persisted: got %v", err)
	}
}

func TestConcurrentOperationsRejected(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})

	mux := newTestMux(t)
	slow := http.NewServeMux()
	slow.HandleFunc("/wp-json/jwt-auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		mux.ServeHTTP(w, r)
	})

	o := newTestEngine(t, slow)

	done := make(chan error, 1)
	go func() {
		done <- o.LoginWithPassword(context.Background(), "seven@example.com", "correct horse")
	}()

	<-arrived
	if err := o.LoginWithPassword(context.Background(), "seven@example.com", "correct horse"); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("second login: got %v, want operation in flight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}
}

func TestBiometricUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("not enrolled", func(t *testing.T) {
		o := newTestEngine(t, newTestMux(t))
		mustLogin(t, o)
		o.Lock()
		if err := o.LoginWithBiometrics(ctx, "unlock"); !errors.Is(err, ErrBiometricsNotConfigured) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("cancelled is recoverable", func(t *testing.T) {
		o := newTestEngine(t, newTestMux(t))
		o.prompt = promptFunc(func(context.Context, string) error { return ErrBiometricsCancelled })
		mustLogin(t, o)
		if err := o.SetBiometricsEnabled(ctx, true); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		o.Lock()

		err := o.LoginWithBiometrics(ctx, "unlock")
		if !errors.Is(err, ErrBiometricsCancelled) {
			t.Fatalf("got %v", err)
		}
		if s := o.Session(); !s.IsLocked {
			t.Fatal("cancelled prompt unlocked the session")
		}
	})

	t.Run("success unlocks", func(t *testing.T) {
		o := newTestEngine(t, newTestMux(t))
		o.prompt = promptFunc(func(context.Context, string) error { return nil })
		mustLogin(t, o)
		if err := o.SetBiometricsEnabled(ctx, true); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		o.Lock()

		if err := o.LoginWithBiometrics(ctx, "unlock"); err != nil {
			t.Fatalf("unlock: %v", err)
		}
		s := o.Session()
		if s.IsLocked || s.AuthMethod != MethodBiometric {
			t.Fatalf("post-unlock session: %+v", s)
		}
	})
}

type promptFunc func(ctx context.Context, message string) error

func (f promptFunc) Authenticate(ctx context.Context, message string) error {
	return f(ctx, message)
}

func TestRefreshSessionKeepsAuthMethod(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	ctx := context.Background()

	mustLogin(t, o)
	if err := o.RegisterPIN(ctx, "2468"); err != nil {
		t.Fatalf("register pin: %v", err)
	}
	o.Lock()
	if err := o.LoginWithPIN(ctx, "2468"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := o.RefreshSession(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	s := o.Session()
	if s.AuthMethod != MethodPin {
		t.Fatalf("refresh changed auth method to %s", s.AuthMethod)
	}
	if s.User == nil || s.User.DisplayName != "Member Seven" {
		t.Fatalf("user = %+v", s.User)
	}
	if s.User.Membership == nil || s.User.Membership.Tier != "gold" {
		t.Fatalf("membership = %+v", s.User.Membership)
	}
}

func TestValidateSession(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))
	ctx := context.Background()

	if err := o.ValidateSession(ctx); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("no token: got %v", err)
	}

	mustLogin(t, o)
	if err := o.ValidateSession(ctx); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// A token the backend no longer accepts forces re-authentication.
	if err := o.vault.SaveToken(ctx, "bearer-stale", mustTokenMeta(time.Now())); err != nil {
		t.Fatalf("seed stale token: %v", err)
	}
	if err := o.ValidateSession(ctx); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("rejected token: got %v", err)
	}
	if s := o.Session(); s.IsAuthenticated {
		t.Fatal("rejected token left the session authenticated")
	}
}

func mustTokenMeta(now time.Time) token.Metadata {
	return token.Metadata{IssuedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour)}
}

func TestRecoverWithStoredPassword(t *testing.T) {
	server := httptest.NewServer(newTestMux(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = server.URL
	cfg.Backend.AllowInsecureHTTP = true
	cfg.Session.StorePasswordFallback = true

	o, err := New().
		WithConfig(cfg).
		WithCredentialStore(store.NewMemory()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(o.Close)

	t.Run("nothing sealed", func(t *testing.T) {
		if err := o.RecoverWithStoredPassword(context.Background()); !errors.Is(err, ErrNoSavedSession) {
			t.Fatalf("got %v, want no saved session", err)
		}
	})

	mustLogin(t, o)
	o.Lock()

	if err := o.RecoverWithStoredPassword(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	s := o.Session()
	if !s.IsAuthenticated || s.IsLocked || s.AuthMethod != MethodPassword {
		t.Fatalf("session: %+v", s)
	}
}

func TestObserverSeesTransitions(t *testing.T) {
	o := newTestEngine(t, newTestMux(t))

	var states []Session
	unsubscribe := o.Subscribe(func(s Session) { states = append(states, s) })

	mustLogin(t, o)
	unsubscribe()
	o.Lock()

	if len(states) < 2 {
		t.Fatalf("observer saw %d transitions, want at least 2", len(states))
	}
	last := states[len(states)-1]
	if !last.IsAuthenticated || last.IsLocked {
		t.Fatalf("last observed state before unsubscribe: %+v", last)
	}
}
