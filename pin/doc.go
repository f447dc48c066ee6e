// Package pin hashes and verifies the device-local unlock PIN.
//
// The PIN never leaves the device and never reaches the backend: it only
// gates local access to an already-issued bearer token. Hashes use argon2id
// in PHC string format so parameters can be upgraded without invalidating
// stored PINs.
package pin
