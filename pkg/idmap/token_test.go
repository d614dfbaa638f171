package idmap

import (
	"regexp"
	"testing"
)

var hexRE = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestToken_Hash(t *testing.T) {
	tok := Token("foobar")
	h := tok.Hash()

	if !hexRE.MatchString(string(h)) {
		t.Errorf("hash %q is not 64 lowercase hex characters", h)
	}
	if tok.Hash() != h {
		t.Error("hash must be deterministic")
	}
	// known vector for sha256("foobar")
	want := HashedToken("c3ab8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2")
	if h != want {
		t.Errorf("Hash() = %s, want %s", h, want)
	}
}

func TestNewToken(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != 28 {
		t.Errorf("token length = %d, want 28", len(tok))
	}

	tok2, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	if tok == tok2 {
		t.Error("two generated tokens should differ")
	}
}

func TestToken_StringRedacts(t *testing.T) {
	tok := Token("supersecret")
	if tok.String() != "[token]" {
		t.Errorf("Token.String() = %q, must not expose the secret", tok.String())
	}
}

func TestParseToken(t *testing.T) {
	if _, err := ParseToken("abc"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	_, err := ParseToken("  ")
	if kind, _ := KindOf(err); kind != NoToken {
		t.Errorf("blank token error = %v, want NoToken", err)
	}
}
