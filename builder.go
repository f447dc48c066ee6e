package gnauth

import (
	"errors"
	"net/http"
	"time"

	"github.com/GeorgeWebDevCy/gnauth/diagnostics"
	"github.com/GeorgeWebDevCy/gnauth/internal/wpapi"
	"github.com/GeorgeWebDevCy/gnauth/pin"
	"github.com/GeorgeWebDevCy/gnauth/store"
)

// Builder assembles an Orchestrator. Construction is allocation-only until
// Build; no I/O happens before the first operation.
type Builder struct {
	config     Config
	store      store.Store
	httpClient *http.Client
	prompt     BiometricPrompt
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the backend site root.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Backend.BaseURL = baseURL
	return b
}

// WithCredentialStore sets the secure credential store backend. Required.
func (b *Builder) WithCredentialStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithHTTPClient overrides the HTTP client used for backend calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithBiometricPrompt injects the platform biometric capability. Without one,
// biometric login fails with ErrBiometricsUnavailable.
func (b *Builder) WithBiometricPrompt(prompt BiometricPrompt) *Builder {
	b.prompt = prompt
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.config.Audit.Enabled = true
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	api, err := wpapi.New(wpapi.Config{
		BaseURL:           b.config.Backend.BaseURL,
		AllowInsecureHTTP: b.config.Backend.AllowInsecureHTTP,
		RequestTimeout:    b.config.Backend.RequestTimeout,
		UserAgent:         b.config.Backend.UserAgent,
		Routes:            b.config.Backend.Routes,
	}, b.httpClient)
	if err != nil {
		return nil, err
	}

	hasher, err := pin.NewHasher(b.config.PIN.Hashing)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:  b.config,
		api:     api,
		vault:   store.NewVault(b.store),
		hasher:  hasher,
		prompt:  b.prompt,
		audit:   newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics: NewMetrics(b.config.Metrics),
		now:     time.Now,
		session: Session{AuthMethod: MethodNone},
	}
	api.OnFallback = func(string) { o.metrics.Inc(MetricRouteFallback) }

	o.diag, err = diagnostics.NewRunner(
		diagnostics.Config{AdvanceDelay: b.config.Diagnostics.AdvanceDelay},
		o.diagnosticProbes(),
	)
	if err != nil {
		return nil, err
	}

	b.built = true
	return o, nil
}
