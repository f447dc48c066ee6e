// Command gnauth-diag logs into a WordPress membership backend and runs the
// four-step connection diagnostics sequence, printing each check as it
// advances. Configuration comes from GNAUTH_* environment variables, with
// flags overriding.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GeorgeWebDevCy/gnauth"
	"github.com/GeorgeWebDevCy/gnauth/diagnostics"
	"github.com/GeorgeWebDevCy/gnauth/store"
)

func main() {
	var (
		baseURL    = flag.String("base-url", "", "site root URL (default from GNAUTH_BASE_URL)")
		identifier = flag.String("user", "", "login identifier (email or username)")
		password   = flag.String("password", "", "login password (or set GNAUTH_DIAG_PASSWORD)")
		statePath  = flag.String("state", "", "credential store file (default in-memory)")
		timeout    = flag.Duration("timeout", 60*time.Second, "overall run timeout")
		auditJSON  = flag.Bool("audit", false, "emit audit events as JSON lines on stderr")
	)
	flag.Parse()

	if err := run(*baseURL, *identifier, *password, *statePath, *timeout, *auditJSON); err != nil {
		fmt.Fprintln(os.Stderr, "gnauth-diag:", err)
		os.Exit(1)
	}
}

func run(baseURL, identifier, password, statePath string, timeout time.Duration, auditJSON bool) error {
	cfg, err := gnauth.ConfigFromEnvironment()
	if err != nil {
		if baseURL == "" {
			return err
		}
		cfg = gnauth.DefaultConfig()
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if password == "" {
		password = os.Getenv("GNAUTH_DIAG_PASSWORD")
	}

	var credStore store.Store
	if statePath != "" {
		fileStore, err := store.NewFile(statePath)
		if err != nil {
			return err
		}
		credStore = fileStore
	} else {
		credStore = store.NewMemory()
	}

	builder := gnauth.New().WithConfig(cfg).WithCredentialStore(credStore)
	if auditJSON {
		builder = builder.WithAuditSink(gnauth.NewJSONWriterSink(os.Stderr))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Bootstrap(ctx); err != nil {
		return err
	}

	if identifier != "" && password != "" {
		fmt.Printf("logging in as %s ...\n", identifier)
		if err := engine.LoginWithPassword(ctx, identifier, password); err != nil {
			return err
		}
	} else if !engine.Session().IsAuthenticated {
		return fmt.Errorf("no stored session and no -user/-password given")
	}

	engine.DiagnosticsRunner().OnUpdate(func(report diagnostics.Report) {
		printReport(report)
	})

	report := engine.RunDiagnostics(ctx)
	fmt.Println()
	if !report.Ready {
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Println("all checks passed")
	return nil
}

func printReport(report diagnostics.Report) {
	fmt.Print("\r")
	for _, check := range report.Checks {
		fmt.Printf("[%s %-7s] ", check.Name, check.Status)
	}
	for _, check := range report.Checks {
		if check.Status == diagnostics.StatusError {
			fmt.Printf("\n  %s: %s", check.Name, check.Detail)
			if check.URL != "" {
				fmt.Printf(" (%s -> %d)", check.URL, check.HTTPStatus)
			}
		}
		if check.Warning != "" {
			fmt.Printf("\n  %s warning: %s", check.Name, check.Warning)
		}
	}
}
