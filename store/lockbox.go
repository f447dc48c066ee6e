package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const lockboxKeySize = 32
const lockboxNonceSize = 24

// ErrLockboxSealBroken is returned when a sealed value fails to decode or
// authenticate.
var ErrLockboxSealBroken = errors.New("lockbox seal broken")

// newLockboxKey generates a random device-local key, base64-encoded for
// storage.
func newLockboxKey() (string, error) {
	key := make([]byte, lockboxKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func decodeLockboxKey(encoded string) (*[lockboxKeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != lockboxKeySize {
		return nil, ErrLockboxSealBroken
	}
	var key [lockboxKeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// lockboxSeal encrypts plaintext under the encoded key, returning
// base64(nonce || box).
func lockboxSeal(encodedKey, plaintext string) (string, error) {
	key, err := decodeLockboxKey(encodedKey)
	if err != nil {
		return "", err
	}

	var nonce [lockboxNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// lockboxOpen reverses lockboxSeal.
func lockboxOpen(encodedKey, sealed string) (string, error) {
	key, err := decodeLockboxKey(encodedKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < lockboxNonceSize {
		return "", ErrLockboxSealBroken
	}

	var nonce [lockboxNonceSize]byte
	copy(nonce[:], raw[:lockboxNonceSize])

	plaintext, ok := secretbox.Open(nil, raw[lockboxNonceSize:], &nonce, key)
	if !ok {
		return "", ErrLockboxSealBroken
	}
	return string(plaintext), nil
}
