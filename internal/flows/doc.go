// Package flows holds the credential-verification strategies as pure boundary
// functions: each takes credentials plus injected dependencies and returns a
// session update (or a classified failure) without mutating session state
// itself. The orchestrator in the root package applies the returned update
// atomically, so a failed strategy can never leave partial state behind.
//
// The PIN and biometric strategies never touch the network; they only gate
// local access to an already-issued token.
package flows
