// Package store is the secure credential store boundary: a scoped key-value
// persistence layer holding the bearer token, its expiry metadata, the
// encrypted password fallback, the PIN hash, and the biometric enablement
// flag.
//
// Three backends ship with the package: Memory for tests, File for a single
// device (the host app is expected to point it at OS-protected storage), and
// Redis for shared vendor terminals where several scanner devices present one
// logical installation. The Vault type layers typed accessors over any
// backend; the orchestrator is its only writer.
package store
