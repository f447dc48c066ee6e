package gnauth

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/pin"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// Config is the full engine configuration. Zero values fall back to the
// defaults from DefaultConfig at Build time.
type Config struct {
	Backend     BackendConfig
	Token       TokenConfig
	PIN         PINConfig
	Session     SessionConfig
	Diagnostics DiagnosticsConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the WordPress backend.
type BackendConfig struct {
	// BaseURL is the site root, e.g. https://members.example.com.
	BaseURL string
	// AllowInsecureHTTP permits plain http. Development override only.
	AllowInsecureHTTP bool
	RequestTimeout    time.Duration
	UserAgent         string
	Routes            wpapi.Routes
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig tunes bearer-token lifetime validation.
type TokenConfig struct {
	// NominalLifetime is the server-side token lifetime the backend
	// advertises.
	NominalLifetime time.Duration
	// LifetimeTolerance bounds acceptable deviation before the lifetime
	// check reports a mismatch warning.
	LifetimeTolerance time.Duration
}

/*
====================================
PIN CONFIG
====================================
*/

// PINConfig tunes PIN validation and hashing.
type PINConfig struct {
	MinLength int
	Hashing   pin.Config
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes cold-start hydration and login-time persistence.
type SessionConfig struct {
	// FreshBootstrapWindow is how recently a token must have been issued
	// for Bootstrap to skip the locked state. Outside the window a valid
	// token hydrates as authenticated-but-locked when a quick-unlock
	// method is registered.
	FreshBootstrapWindow time.Duration
	// StorePasswordFallback seals the password into the credential store
	// at login so a forgotten PIN can be re-bootstrapped without typing
	// the password again.
	StorePasswordFallback bool
}

/*
====================================
DIAGNOSTICS CONFIG
====================================
*/

// DiagnosticsConfig tunes the post-login verification sequence.
type DiagnosticsConfig struct {
	// AdvanceDelay is how long the runner lingers after full success so
	// the UI can render the success state before auto-advancing.
	AdvanceDelay time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking the auth path when the
	// buffer is saturated.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when the host overrides
// nothing but the base URL.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			RequestTimeout: 10 * time.Second,
			UserAgent:      "gnauth/1",
			Routes:         wpapi.DefaultRoutes(),
		},
		Token: TokenConfig{
			NominalLifetime:   token.NominalLifetime,
			LifetimeTolerance: token.DefaultTolerance,
		},
		PIN: PINConfig{
			MinLength: pin.MinLength,
			Hashing:   pin.DefaultConfig(),
		},
		Session: SessionConfig{
			FreshBootstrapWindow: 15 * time.Minute,
		},
		Diagnostics: DiagnosticsConfig{
			AdvanceDelay: 900 * time.Millisecond,
		},
		Audit: AuditConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base URL required")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.Token.NominalLifetime <= 0 {
		return errors.New("nominal token lifetime must be positive")
	}
	if c.Token.LifetimeTolerance <= 0 {
		return errors.New("lifetime tolerance must be positive")
	}
	if c.PIN.MinLength < pin.MinLength {
		return errors.New("pin minimum length below floor")
	}
	if c.Diagnostics.AdvanceDelay < 0 {
		return errors.New("diagnostics advance delay must not be negative")
	}
	return nil
}

const envconfigPrefix = "GNAUTH"

type envConfig struct {
	BaseURL               string        `envconfig:"BASE_URL" required:"true"`
	AllowInsecureHTTP     bool          `envconfig:"ALLOW_INSECURE_HTTP"`
	RequestTimeout        time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	UserAgent             string        `envconfig:"USER_AGENT"`
	DiagnosticsDelay      time.Duration `envconfig:"DIAGNOSTICS_ADVANCE_DELAY" default:"900ms"`
	StorePasswordFallback bool          `envconfig:"STORE_PASSWORD_FALLBACK"`
	AuditEnabled          bool          `envconfig:"AUDIT_ENABLED"`
	MetricsEnabled        bool          `envconfig:"METRICS_ENABLED"`
}

// ConfigFromEnvironment builds a Config from GNAUTH_* environment variables,
// starting from DefaultConfig.
func ConfigFromEnvironment() (Config, error) {
	var env envConfig
	if err := envconfig.Process(envconfigPrefix, &env); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = env.BaseURL
	cfg.Backend.AllowInsecureHTTP = env.AllowInsecureHTTP
	cfg.Backend.RequestTimeout = env.RequestTimeout
	if env.UserAgent != "" {
		cfg.Backend.UserAgent = env.UserAgent
	}
	cfg.Diagnostics.AdvanceDelay = env.DiagnosticsDelay
	cfg.Session.StorePasswordFallback = env.StorePasswordFallback
	cfg.Audit.Enabled = env.AuditEnabled
	cfg.Metrics.Enabled = env.MetricsEnabled
	return cfg, nil
}
