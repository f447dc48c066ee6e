// Package token resolves and validates the lifetime of the bearer token issued
// by the WordPress backend. The token is opaque to the client for authorization
// purposes; this package only derives issued-at/expiry metadata from it, either
// from expiry data persisted at login time or by decoding the embedded JWT
// claims when the server issues a claims-bearing token.
package token
