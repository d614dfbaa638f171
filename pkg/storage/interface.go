// Package storage provides the persistence layer for the ID mapping
// service: local users and their token hashes, namespaces and their admin
// sets, and mappings.
//
// Two backends are supported through the same GORM codebase:
//   - SQLite (single-node, default; ":memory:" for tests)
//   - PostgreSQL (HA-capable)
package storage

import (
	"context"

	"github.com/kbase/idmapping/pkg/idmap"
)

// Store is the persistence contract consumed by the mapper and the local
// user-lookup handler.
//
// Thread safety: implementations must be safe for concurrent use from
// multiple goroutines.
//
// Uniqueness invariants enforced by implementations: local user names,
// local user token hashes, namespace IDs, and (primary, secondary) mapping
// pairs are all unique. Reverse mapping lookup is index-backed.
type Store interface {
	// CreateLocalUser creates a local user with the given token hash.
	// Returns idmap.UserExists if the username is taken, or an opaque
	// error if the token hash collides with another user.
	CreateLocalUser(ctx context.Context, name idmap.Username, hash idmap.HashedToken) error

	// UpdateLocalUserToken replaces the user's token hash.
	// Returns idmap.NoSuchUser if the user doesn't exist.
	UpdateLocalUserToken(ctx context.Context, name idmap.Username, hash idmap.HashedToken) error

	// SetLocalUserAsAdmin sets or clears the user's system admin bit.
	// Idempotent. Returns idmap.NoSuchUser if the user doesn't exist.
	SetLocalUserAsAdmin(ctx context.Context, name idmap.Username, admin bool) error

	// GetUser resolves a hashed token to a local user and their admin bit.
	// Returns idmap.InvalidToken when no user has this hash.
	GetUser(ctx context.Context, hash idmap.HashedToken) (idmap.Username, bool, error)

	// UserExists reports whether a local user with the name exists.
	UserExists(ctx context.Context, name idmap.Username) (bool, error)

	// GetUsers returns all local users mapped to their admin bits.
	GetUsers(ctx context.Context) (map[idmap.Username]bool, error)

	// CreateNamespace creates a namespace with an empty admin set, not
	// publicly mappable. Returns idmap.NamespaceExists on duplicate.
	CreateNamespace(ctx context.Context, id idmap.NamespaceID) error

	// GetNamespace returns a namespace with its admin set.
	// Returns idmap.NoSuchNamespace if absent.
	GetNamespace(ctx context.Context, id idmap.NamespaceID) (*idmap.Namespace, error)

	// GetNamespaces returns the requested namespaces, or all namespaces
	// when no IDs are given. When IDs are given the call fails with
	// idmap.NoSuchNamespace if any requested ID is absent, which makes it
	// usable as a batch existence check.
	GetNamespaces(ctx context.Context, ids ...idmap.NamespaceID) ([]*idmap.Namespace, error)

	// AddUserToNamespace adds a user to the namespace admin set.
	// Returns idmap.NoSuchNamespace if the namespace is absent and
	// idmap.UserExists if the user is already an admin.
	AddUserToNamespace(ctx context.Context, id idmap.NamespaceID, user idmap.User) error

	// RemoveUserFromNamespace removes a user from the namespace admin set.
	// Returns idmap.NoSuchNamespace if the namespace is absent and
	// idmap.NoSuchUser if the user is not an admin.
	RemoveUserFromNamespace(ctx context.Context, id idmap.NamespaceID, user idmap.User) error

	// SetNamespacePubliclyMappable sets the public mappability flag.
	// Idempotent. Returns idmap.NoSuchNamespace if absent.
	SetNamespacePubliclyMappable(ctx context.Context, id idmap.NamespaceID, publiclyMappable bool) error

	// AddMapping stores a mapping. Idempotent on the duplicate pair.
	// Namespace existence is not validated here; the mapper validates
	// before writing.
	AddMapping(ctx context.Context, primary, secondary idmap.ObjectID) error

	// RemoveMapping removes a mapping, reporting whether one was removed.
	RemoveMapping(ctx context.Context, primary, secondary idmap.ObjectID) (bool, error)

	// FindMappings returns the object IDs the given ID maps to (forward,
	// where oid is the primary) and from (reverse, where oid is the
	// secondary). Both sets are empty when the ID has no mappings. A
	// non-empty filter restricts both sets to the given namespaces.
	FindMappings(ctx context.Context, oid idmap.ObjectID, filter []idmap.NamespaceID) (forward, reverse []idmap.ObjectID, err error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying database connection.
	Close() error
}
