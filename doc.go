// Package gnauth is the session and authentication engine for the TCN
// membership app, speaking to a WordPress backend over its JSON REST API.
//
// The engine is a state machine around one Session value. Identity is
// established over the network exactly two ways, password login and one-time
// hand-off token redemption; PIN and biometrics never talk to the server,
// they only re-gate a token the network already issued. That split shapes the
// package layout:
//
//   - the root package owns the Orchestrator: session state, operation
//     serialization, error classification, audit and metrics
//   - internal/wpapi is the wire boundary: route fallback, HTML error page
//     sanitization, payload decoding
//   - internal/flows holds the login and unlock strategies as pure functions
//     over injected dependencies
//   - token resolves and validates bearer-token lifetimes
//   - pin hashes and verifies the local unlock PIN
//   - store persists credential artifacts behind a small Store interface
//   - diagnostics runs the four-step post-login verification sequence
//
// Construction goes through the Builder:
//
//	engine, err := gnauth.New().
//		WithBaseURL("https://members.example.com").
//		WithCredentialStore(store.NewMemory()).
//		Build()
//
// All Orchestrator methods are safe for concurrent use. State-mutating
// operations are serialized; a second operation started while one is running
// fails fast with ErrOperationInFlight instead of queueing.
//
// Every failure surfaced to the host is a *Error carrying a stable Code. The
// presentation layer localizes by code; raw backend text never reaches the
// user unsanitized.
package gnauth
