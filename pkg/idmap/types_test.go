package idmap

import (
	"errors"
	"strings"
	"testing"
)

func TestNewNamespaceID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind ErrorKind
	}{
		{"simple", "ns1", 0},
		{"underscores and case", "NCBI_Refseq", 0},
		{"max length", strings.Repeat("a", 256), 0},
		{"empty", "", MissingParameter},
		{"whitespace only", "   \t", MissingParameter},
		{"too long", strings.Repeat("a", 257), IllegalParameter},
		{"illegal char", "foo*bar", IllegalParameter},
		{"embedded space", "foo bar", IllegalParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewNamespaceID(tt.input)
			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("NewNamespaceID(%q) returned error: %v", tt.input, err)
				}
				if id.String() != tt.input {
					t.Errorf("round trip = %q, want %q", id.String(), tt.input)
				}
				return
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Errorf("NewNamespaceID(%q) error = %v, want kind %d", tt.input, err, tt.wantKind)
			}
		})
	}
}

func TestNewNamespaceID_NamesOffendingCharacter(t *testing.T) {
	_, err := NewNamespaceID("foo*bar")
	if err == nil || !strings.Contains(err.Error(), "*") {
		t.Errorf("error should name the offending character, got %v", err)
	}
}

func TestNewUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind ErrorKind
	}{
		{"simple", "alice", 0},
		{"with digits", "a1b2", 0},
		{"max length", "a" + strings.Repeat("b", 99), 0},
		{"empty", "", MissingParameter},
		{"whitespace only", "  ", MissingParameter},
		{"too long", "a" + strings.Repeat("b", 100), IllegalUsername},
		{"starts with digit", "1alice", IllegalUsername},
		{"uppercase", "Alice", IllegalUsername},
		{"illegal char", "al_ice", IllegalUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUsername(tt.input)
			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("NewUsername(%q) returned error: %v", tt.input, err)
				}
				if u.String() != tt.input {
					t.Errorf("round trip = %q, want %q", u.String(), tt.input)
				}
				return
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Errorf("NewUsername(%q) error = %v, want kind %d", tt.input, err, tt.wantKind)
			}
		})
	}
}

func TestNewAuthsourceID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind ErrorKind
	}{
		{"local", "local", 0},
		{"kbase", "kbase", 0},
		{"max length", strings.Repeat("a", 20), 0},
		{"empty", "", MissingParameter},
		{"too long", strings.Repeat("a", 21), IllegalParameter},
		{"uppercase", "Local", IllegalParameter},
		{"digits", "auth2", IllegalParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAuthsourceID(tt.input)
			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("NewAuthsourceID(%q) returned error: %v", tt.input, err)
				}
				return
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Errorf("NewAuthsourceID(%q) error = %v, want kind %d", tt.input, err, tt.wantKind)
			}
		})
	}
}

func TestNewObjectID(t *testing.T) {
	ns, _ := NewNamespaceID("ns")

	if _, err := NewObjectID(ns, "some-id"); err != nil {
		t.Fatalf("valid object id rejected: %v", err)
	}
	if _, err := NewObjectID(ns, strings.Repeat("x", 1000)); err != nil {
		t.Fatalf("max length data id rejected: %v", err)
	}

	_, err := NewObjectID(ns, "")
	if kind, _ := KindOf(err); kind != MissingParameter {
		t.Errorf("empty data id error = %v, want MissingParameter", err)
	}
	_, err = NewObjectID(ns, strings.Repeat("x", 1001))
	if kind, _ := KindOf(err); kind != IllegalParameter {
		t.Errorf("oversize data id error = %v, want IllegalParameter", err)
	}
	_, err = NewObjectID("", "id")
	if kind, _ := KindOf(err); kind != MissingParameter {
		t.Errorf("missing namespace error = %v, want MissingParameter", err)
	}
}

func TestUser_String(t *testing.T) {
	u, err := NewUser("local", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != "local/alice" {
		t.Errorf("User.String() = %q, want %q", u.String(), "local/alice")
	}
}

func TestUser_MapKey(t *testing.T) {
	u1, _ := NewUser("local", "alice")
	u2, _ := NewUser("local", "alice")
	m := map[User]struct{}{u1: {}}
	if _, ok := m[u2]; !ok {
		t.Error("value-equal users should hash to the same map key")
	}
}

func TestNamespace_Admins(t *testing.T) {
	ns := NewNamespace("ns1")
	alice, _ := NewUser("local", "alice")
	bob, _ := NewUser("kbase", "bob")

	ns.Admins[alice] = struct{}{}
	ns.Admins[bob] = struct{}{}

	if !ns.IsAdmin(alice) || !ns.IsAdmin(bob) {
		t.Error("admins not reported")
	}

	list := ns.AdminList()
	if len(list) != 2 || list[0] != bob || list[1] != alice {
		t.Errorf("AdminList() = %v, want sorted [kbase/bob local/alice]", list)
	}

	redacted := ns.WithoutAdmins()
	if len(redacted.Admins) != 0 {
		t.Error("WithoutAdmins() must return an empty admin set")
	}
	if redacted.ID != ns.ID || redacted.PubliclyMappable != ns.PubliclyMappable {
		t.Error("WithoutAdmins() must preserve id and mappability")
	}
	if !ns.IsAdmin(alice) {
		t.Error("WithoutAdmins() must not mutate the original")
	}
}

func TestError_Render(t *testing.T) {
	err := NewError(NoSuchNamespace, "ns1")
	if err.Error() != "50010 No such namespace: ns1" {
		t.Errorf("Error() = %q", err.Error())
	}
	bare := NewError(Unauthorized, "")
	if bare.Error() != "20000 Unauthorized" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(NoSuchUser, "alice")
	if !errors.Is(err, NewError(NoSuchUser, "")) {
		t.Error("errors with equal kinds should match")
	}
	if errors.Is(err, NewError(NoSuchNamespace, "")) {
		t.Error("errors with different kinds should not match")
	}
}
