// Package idmap defines the value types and error taxonomy shared by the
// ID mapping service: namespace and user identifiers, tokens and their
// hashes, object IDs and mappings.
//
// All identifier types are plain string kinds so they are value-equal,
// hashable, and usable as map keys. Constructors validate before
// constructing; a value obtained from a constructor is always legal.
package idmap

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxNamespaceIDLen  = 256
	maxUsernameLen     = 100
	maxAuthsourceIDLen = 20
	maxDataIDLen       = 1000
)

// Local is the reserved authentication source ID for users stored in this
// system.
const Local AuthsourceID = "local"

// NamespaceID identifies an administrative namespace, e.g. "NCBI_Refseq".
// Legal characters are [a-zA-Z0-9_], length 1..256.
type NamespaceID string

// NewNamespaceID validates and constructs a NamespaceID.
func NewNamespaceID(id string) (NamespaceID, error) {
	if err := checkMissing(id, "namespace id"); err != nil {
		return "", err
	}
	if len(id) > maxNamespaceIDLen {
		return "", NewErrorf(IllegalParameter, "namespace id %s exceeds maximum length of %d", id, maxNamespaceIDLen)
	}
	for _, r := range id {
		if !isNamespaceChar(r) {
			return "", NewErrorf(IllegalParameter, "Illegal character in namespace id %s: %c", id, r)
		}
	}
	return NamespaceID(id), nil
}

func (n NamespaceID) String() string { return string(n) }

func isNamespaceChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Username identifies a user within an authentication source. It must start
// with a lowercase letter, remaining characters in [a-z0-9], length 1..100.
type Username string

// NewUsername validates and constructs a Username.
func NewUsername(name string) (Username, error) {
	if strings.TrimSpace(name) == "" {
		return "", NewError(MissingParameter, "user name")
	}
	if len(name) > maxUsernameLen {
		return "", NewErrorf(IllegalUsername, "user name %s exceeds maximum length of %d", name, maxUsernameLen)
	}
	for i, r := range name {
		if i == 0 && !(r >= 'a' && r <= 'z') {
			return "", NewErrorf(IllegalUsername, "user name %s must start with a letter", name)
		}
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return "", NewErrorf(IllegalUsername, "Illegal character in user name %s: %c", name, r)
		}
	}
	return Username(name), nil
}

func (u Username) String() string { return string(u) }

// AuthsourceID identifies a provider of identity assertions. Legal
// characters are [a-z], length 1..20. The value "local" is reserved for
// users stored in this system.
type AuthsourceID string

// NewAuthsourceID validates and constructs an AuthsourceID.
func NewAuthsourceID(id string) (AuthsourceID, error) {
	if err := checkMissing(id, "authsource id"); err != nil {
		return "", err
	}
	if len(id) > maxAuthsourceIDLen {
		return "", NewErrorf(IllegalParameter, "authsource id %s exceeds maximum length of %d", id, maxAuthsourceIDLen)
	}
	for _, r := range id {
		if r < 'a' || r > 'z' {
			return "", NewErrorf(IllegalParameter, "Illegal character in authsource id %s: %c", id, r)
		}
	}
	return AuthsourceID(id), nil
}

func (a AuthsourceID) String() string { return string(a) }

// User is a user identity within an authentication source.
type User struct {
	Source AuthsourceID
	Name   Username
}

// NewUser validates the parts and constructs a User.
func NewUser(source, name string) (User, error) {
	src, err := NewAuthsourceID(source)
	if err != nil {
		return User{}, err
	}
	usr, err := NewUsername(name)
	if err != nil {
		return User{}, err
	}
	return User{Source: src, Name: usr}, nil
}

// String renders the user as "authsource/name".
func (u User) String() string {
	return fmt.Sprintf("%s/%s", u.Source, u.Name)
}

// ObjectID identifies a data object within a namespace. The data ID is an
// opaque non-empty string of at most 1000 characters.
type ObjectID struct {
	Namespace NamespaceID
	ID        string
}

// NewObjectID validates and constructs an ObjectID.
func NewObjectID(namespace NamespaceID, id string) (ObjectID, error) {
	if namespace == "" {
		return ObjectID{}, NewError(MissingParameter, "namespace id")
	}
	if strings.TrimSpace(id) == "" {
		return ObjectID{}, NewError(MissingParameter, "data id")
	}
	if len(id) > maxDataIDLen {
		return ObjectID{}, NewErrorf(IllegalParameter, "data id exceeds maximum length of %d", maxDataIDLen)
	}
	return ObjectID{Namespace: namespace, ID: id}, nil
}

// String renders the object ID as "namespace/id".
func (o ObjectID) String() string {
	return fmt.Sprintf("%s/%s", o.Namespace, o.ID)
}

// Mapping is an ordered pair of object IDs. The primary side is the
// administrative side. Intra-namespace mappings are permitted.
type Mapping struct {
	Primary   ObjectID
	Secondary ObjectID
}

// Namespace describes an administrative namespace: its ID, whether any
// authenticated user may create mappings into it, and the set of users
// that administrate it.
type Namespace struct {
	ID               NamespaceID
	PubliclyMappable bool
	Admins           map[User]struct{}
}

// NewNamespace constructs a namespace with an empty admin set.
func NewNamespace(id NamespaceID) *Namespace {
	return &Namespace{ID: id, Admins: map[User]struct{}{}}
}

// IsAdmin reports whether the user is in the namespace's admin set.
func (n *Namespace) IsAdmin(user User) bool {
	_, ok := n.Admins[user]
	return ok
}

// AdminList returns the admin set as a slice sorted by authsource then name.
func (n *Namespace) AdminList() []User {
	admins := make([]User, 0, len(n.Admins))
	for u := range n.Admins {
		admins = append(admins, u)
	}
	sort.Slice(admins, func(i, j int) bool {
		if admins[i].Source != admins[j].Source {
			return admins[i].Source < admins[j].Source
		}
		return admins[i].Name < admins[j].Name
	})
	return admins
}

// WithoutAdmins returns a copy of the namespace with an empty admin set,
// for rendering to callers not authorized to see the admins.
func (n *Namespace) WithoutAdmins() *Namespace {
	return &Namespace{ID: n.ID, PubliclyMappable: n.PubliclyMappable, Admins: map[User]struct{}{}}
}

// LocalUser is a user stored in this system. The token hash is the sole
// authenticator; the clear token is never persisted.
type LocalUser struct {
	Name      Username
	TokenHash HashedToken
	Admin     bool
}

func checkMissing(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return NewError(MissingParameter, field)
	}
	return nil
}
