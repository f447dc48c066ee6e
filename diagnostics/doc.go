// Package diagnostics runs the post-login verification sequence: four
// strictly ordered probes (server reachability, token presence, token
// lifetime sanity, endpoint authorization) that confirm a fresh session is
// actually usable against the live backend. Any failure short-circuits the
// remaining checks, which are reported as blocked rather than attempted.
//
// The runner holds no state between runs beyond the last report; it is safe
// to re-run after a failure.
package diagnostics
