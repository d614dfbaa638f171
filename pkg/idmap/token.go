package idmap

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Token is an opaque bearer secret. It is never persisted and never logged;
// only its hash is stored or compared for local users.
type Token string

// NewToken generates a fresh token: 160 random bits rendered as base64
// (28 characters).
func NewToken() (Token, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return Token(base64.StdEncoding.EncodeToString(buf)), nil
}

// ParseToken validates a caller-supplied token string.
func ParseToken(token string) (Token, error) {
	if strings.TrimSpace(token) == "" {
		return "", NewError(NoToken, "")
	}
	return Token(token), nil
}

// Hash returns the one-way hash of the token used for storage lookups.
func (t Token) Hash() HashedToken {
	sum := sha256.Sum256([]byte(t))
	return HashedToken(hex.EncodeToString(sum[:]))
}

// String renders a redacted placeholder so a token can never leak through
// formatted output.
func (t Token) String() string {
	return "[token]"
}

// HashedToken is the SHA-256 hex digest of a token: 64 lowercase hex
// characters, deterministic for a given token.
type HashedToken string

func (h HashedToken) String() string { return string(h) }
