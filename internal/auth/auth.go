// Package auth binds a shared relay passkey to a TLS session so that only
// holders of the passkey can open streams through a relay.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	PasskeySize = 32
	TokenSize   = sha256.Size

	exporterLabel = "ibgw-relay-auth-v1"
)

var ErrBadPasskey = errors.New("passkey must be 64 hex characters")

// GeneratePasskey returns a random passkey.
func GeneratePasskey() ([]byte, error) {
	key := make([]byte, PasskeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// ParsePasskey decodes the hex form used in configuration files.
func ParsePasskey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != PasskeySize {
		return nil, ErrBadPasskey
	}
	return key, nil
}

func FormatPasskey(key []byte) string { return hex.EncodeToString(key) }

// Material derives the per-connection keying material tokens are bound to.
func Material(state tls.ConnectionState) ([]byte, error) {
	m, err := state.ExportKeyingMaterial(exporterLabel, nil, 32)
	if err != nil {
		return nil, fmt.Errorf("export keying material: %w", err)
	}
	return m, nil
}

// ComputeToken returns HMAC-SHA256(passkey, material).
func ComputeToken(passkey, material []byte) [TokenSize]byte {
	mac := hmac.New(sha256.New, passkey)
	mac.Write(material)
	var token [TokenSize]byte
	copy(token[:], mac.Sum(nil))
	return token
}

// VerifyToken reports whether token was computed from passkey and material.
func VerifyToken(passkey, material []byte, token [TokenSize]byte) bool {
	expected := ComputeToken(passkey, material)
	return hmac.Equal(token[:], expected[:])
}
