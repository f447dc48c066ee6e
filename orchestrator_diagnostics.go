package gnauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/GeorgeWebDevCy/gnauth/diagnostics"
	"github.com/GeorgeWebDevCy/gnauth/token"
)

// DiagnosticsRunner exposes the engine's diagnostics sequence so the host can
// register an OnUpdate observer for rendering.
func (o *Orchestrator) DiagnosticsRunner() *diagnostics.Runner {
	return o.diag
}

// RunDiagnostics executes the four-step post-login verification sequence:
// server reachability, token presence, token lifetime, authenticated
// endpoint. Checks run strictly in order; a failure blocks everything after
// it.
func (o *Orchestrator) RunDiagnostics(ctx context.Context) diagnostics.Report {
	o.metrics.Inc(MetricDiagnosticsRun)
	o.emitAudit(ctx, "diagnostics.run", MethodNone, true, nil)

	report := o.diag.Run(ctx)
	if report.Ready {
		o.metrics.Inc(MetricDiagnosticsReady)
	} else {
		o.metrics.Inc(MetricDiagnosticsFailed)
	}
	return report
}

func (o *Orchestrator) diagnosticProbes() diagnostics.Probes {
	return diagnostics.Probes{
		Server:   o.probeServer,
		Token:    o.probeToken,
		Lifetime: o.probeLifetime,
		Endpoint: o.probeEndpoint,
	}
}

func (o *Orchestrator) probeServer(ctx context.Context) (diagnostics.Probe, error) {
	wp, err := o.api.Discovery(ctx)
	probe := diagnostics.Probe{URL: wp.URL, HTTPStatus: wp.StatusCode}
	if err != nil {
		return probe, classify(err)
	}
	probe.Detail = "REST discovery reachable"
	return probe, nil
}

func (o *Orchestrator) probeToken(ctx context.Context) (string, diagnostics.Probe, error) {
	bearer, err := o.SessionToken(ctx)
	if err != nil {
		return "", diagnostics.Probe{}, err
	}
	return bearer, diagnostics.Probe{Detail: "bearer token present"}, nil
}

func (o *Orchestrator) probeLifetime(ctx context.Context, bearer string) (diagnostics.Probe, error) {
	persisted, err := o.vault.TokenMetadata(ctx)
	if err != nil {
		return diagnostics.Probe{}, classify(err)
	}
	meta, err := token.Resolve(persisted, bearer)
	if err != nil {
		return diagnostics.Probe{}, classify(err)
	}

	probe := diagnostics.Probe{
		Detail: fmt.Sprintf("expires %s", meta.ExpiresAt.Format("2006-01-02 15:04 MST")),
	}

	err = token.Validate(meta, o.now(), o.config.Token.NominalLifetime, o.config.Token.LifetimeTolerance)
	var drift *token.LifetimeError
	if errors.As(err, &drift) {
		// Lifetime drift is advisory. The check passes with a warning.
		probe.Warning = drift.Error()
		return probe, nil
	}
	if err != nil {
		return probe, classify(err)
	}
	return probe, nil
}

func (o *Orchestrator) probeEndpoint(ctx context.Context, bearer string) (diagnostics.Probe, error) {
	payload, wp, err := o.api.Profile(ctx, bearer)
	probe := diagnostics.Probe{URL: wp.URL, HTTPStatus: wp.StatusCode}
	if err != nil {
		return probe, classify(err)
	}
	probe.Detail = fmt.Sprintf("authenticated as %s", payload.Email)
	return probe, nil
}
