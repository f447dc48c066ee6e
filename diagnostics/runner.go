package diagnostics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of a single check.
type Status string

const (
	// StatusPending is an unstarted check in a fresh run.
	StatusPending Status = "pending"
	// StatusRunning is the check currently probing.
	StatusRunning Status = "running"
	// StatusSuccess is a passed check.
	StatusSuccess Status = "success"
	// StatusError is a failed check.
	StatusError Status = "error"
	// StatusBlocked marks checks skipped because an earlier one failed.
	StatusBlocked Status = "blocked"
)

// CheckName identifies one of the four checks.
type CheckName string

const (
	// CheckServer probes the REST discovery endpoint.
	CheckServer CheckName = "server"
	// CheckToken confirms a bearer token is available.
	CheckToken CheckName = "token"
	// CheckLifetime validates token expiry and nominal-duration sanity.
	CheckLifetime CheckName = "lifetime"
	// CheckEndpoint calls the authenticated profile endpoint.
	CheckEndpoint CheckName = "endpoint"
)

// Order is the fixed execution order of the checks.
var Order = [4]CheckName{CheckServer, CheckToken, CheckLifetime, CheckEndpoint}

// Probe is the metadata a probe function reports for rendering, populated as
// far as possible even when the probe fails.
type Probe struct {
	URL        string
	HTTPStatus int
	Detail     string
	// Warning is set for soft findings that do not fail the check, such
	// as a token lifetime outside tolerance.
	Warning string
}

// CheckResult is the rendered state of one check.
type CheckResult struct {
	Name       CheckName
	Status     Status
	Detail     string
	Warning    string
	URL        string
	HTTPStatus int
}

// Report is a point-in-time copy of a diagnostics run.
type Report struct {
	Checks      [4]CheckResult
	Ready       bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// Check returns the result for name.
func (r Report) Check(name CheckName) CheckResult {
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	return CheckResult{}
}

// Probes are the injected check implementations. Token hands its artifact to
// the later checks; the chain never re-derives it mid-run.
type Probes struct {
	Server   func(ctx context.Context) (Probe, error)
	Token    func(ctx context.Context) (string, Probe, error)
	Lifetime func(ctx context.Context, bearer string) (Probe, error)
	Endpoint func(ctx context.Context, bearer string) (Probe, error)
}

// Config tunes the runner.
type Config struct {
	// AdvanceDelay is how long Run lingers after full success before
	// returning, giving the UI time to render the success state.
	AdvanceDelay time.Duration
}

// Runner executes the probe sequence. Safe for concurrent observation; runs
// themselves are serialized.
type Runner struct {
	cfg    Config
	probes Probes

	mu       sync.Mutex
	running  bool
	report   Report
	onUpdate func(Report)
}

// NewRunner validates the probe set and returns a Runner.
func NewRunner(cfg Config, probes Probes) (*Runner, error) {
	if probes.Server == nil || probes.Token == nil || probes.Lifetime == nil || probes.Endpoint == nil {
		return nil, errors.New("all four probes are required")
	}
	return &Runner{cfg: cfg, probes: probes}, nil
}

// OnUpdate registers a callback invoked with a report copy after every check
// transition. Must be set before Run.
func (r *Runner) OnUpdate(fn func(Report)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// Report returns the most recent report.
func (r *Runner) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Run executes the sequence once and returns the final report. A run already
// in flight causes an immediate return of the current report.
func (r *Runner) Run(ctx context.Context) Report {
	r.mu.Lock()
	if r.running {
		current := r.report
		r.mu.Unlock()
		return current
	}
	r.running = true
	r.report = Report{StartedAt: time.Now()}
	for i, name := range Order {
		r.report.Checks[i] = CheckResult{Name: name, Status: StatusPending}
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()
	r.notify()

	var bearer string
	for i, name := range Order {
		r.setStatus(i, StatusRunning, Probe{}, "")

		probe, err := r.runCheck(ctx, name, &bearer)
		if err != nil {
			r.setStatus(i, StatusError, probe, err.Error())
			r.block(i + 1)
			r.finish(false)
			return r.Report()
		}
		r.setStatus(i, StatusSuccess, probe, "")
	}

	r.finish(true)
	if r.cfg.AdvanceDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.cfg.AdvanceDelay):
		}
	}
	return r.Report()
}

func (r *Runner) runCheck(ctx context.Context, name CheckName, bearer *string) (Probe, error) {
	switch name {
	case CheckServer:
		return r.probes.Server(ctx)
	case CheckToken:
		tok, probe, err := r.probes.Token(ctx)
		if err == nil {
			*bearer = tok
		}
		return probe, err
	case CheckLifetime:
		return r.probes.Lifetime(ctx, *bearer)
	case CheckEndpoint:
		return r.probes.Endpoint(ctx, *bearer)
	}
	return Probe{}, errors.New("unknown check")
}

func (r *Runner) setStatus(index int, status Status, probe Probe, detail string) {
	r.mu.Lock()
	check := &r.report.Checks[index]
	check.Status = status
	if probe.URL != "" {
		check.URL = probe.URL
	}
	if probe.HTTPStatus != 0 {
		check.HTTPStatus = probe.HTTPStatus
	}
	if probe.Warning != "" {
		check.Warning = probe.Warning
	}
	switch {
	case detail != "":
		check.Detail = detail
	case probe.Detail != "":
		check.Detail = probe.Detail
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) block(from int) {
	r.mu.Lock()
	for i := from; i < len(r.report.Checks); i++ {
		r.report.Checks[i].Status = StatusBlocked
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) finish(ready bool) {
	r.mu.Lock()
	r.report.Ready = ready
	r.report.CompletedAt = time.Now()
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) notify() {
	r.mu.Lock()
	fn := r.onUpdate
	report := r.report
	r.mu.Unlock()
	if fn != nil {
		fn(report)
	}
}
