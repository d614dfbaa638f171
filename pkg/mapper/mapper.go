// Package mapper implements the authorization and orchestration kernel of
// the ID mapping service. It sits between the HTTP layer and storage:
// every operation authenticates the caller through the user-lookup set,
// applies the namespace authorization rules, then performs the storage
// operation.
package mapper

import (
	"context"
	"fmt"
	"sort"

	"github.com/kbase/idmapping/pkg/idmap"
	"github.com/kbase/idmapping/pkg/lookup"
	"github.com/kbase/idmapping/pkg/storage"
)

// Auth is a caller credential: an authsource and a bearer token for it.
type Auth struct {
	Source idmap.AuthsourceID
	Token  idmap.Token
}

// Mapper enforces the authorization rules around namespaces and mappings.
//
// System admin privilege requires both that the caller's handler reports
// the admin bit and that the caller's authsource is configured as a system
// admin source; the admin bit from any other source is ignored. Namespace
// admin privilege comes solely from the stored namespace admin set.
//
// Safe for concurrent use. The admin source set is immutable after
// construction.
type Mapper struct {
	store        storage.Store
	lookup       *lookup.Set
	adminSources map[idmap.AuthsourceID]struct{}
}

// New creates a mapper. Every admin source must be a configured authsource
// in the lookup set.
func New(store storage.Store, lookupSet *lookup.Set, adminSources []idmap.AuthsourceID) (*Mapper, error) {
	sources := make(map[idmap.AuthsourceID]struct{}, len(adminSources))
	for _, src := range adminSources {
		if !lookupSet.Has(src) {
			return nil, fmt.Errorf("system admin authsource %s is not a configured authsource", src)
		}
		sources[src] = struct{}{}
	}
	return &Mapper{store: store, lookup: lookupSet, adminSources: sources}, nil
}

// authenticate resolves the caller and reports whether they hold system
// admin privilege: the handler's admin bit counts only when the source is
// a configured admin source.
func (m *Mapper) authenticate(ctx context.Context, auth Auth) (idmap.User, bool, error) {
	user, admin, err := m.lookup.GetUser(ctx, auth.Source, auth.Token)
	if err != nil {
		return idmap.User{}, false, err
	}
	if _, ok := m.adminSources[auth.Source]; !ok {
		admin = false
	}
	return user, admin, nil
}

// requireSystemAdmin authenticates the caller and fails Unauthorized
// unless they hold system admin privilege. The admin-source check runs
// first so the error names the rejected authsource.
func (m *Mapper) requireSystemAdmin(ctx context.Context, auth Auth) (idmap.User, error) {
	user, admin, err := m.lookup.GetUser(ctx, auth.Source, auth.Token)
	if err != nil {
		return idmap.User{}, err
	}
	if _, ok := m.adminSources[auth.Source]; !ok {
		return idmap.User{}, idmap.NewErrorf(idmap.Unauthorized,
			"Auth source %s is not configured as a system administration auth source", auth.Source)
	}
	if !admin {
		return idmap.User{}, idmap.NewErrorf(idmap.Unauthorized,
			"User %s is not a system administrator", user)
	}
	return user, nil
}

// CreateNamespace creates a namespace. System admin only.
func (m *Mapper) CreateNamespace(ctx context.Context, auth Auth, id idmap.NamespaceID) error {
	if _, err := m.requireSystemAdmin(ctx, auth); err != nil {
		return err
	}
	return m.store.CreateNamespace(ctx, id)
}

// AddUserToNamespace adds a user to a namespace's admin set. System admin
// only. The user must exist at their authsource.
func (m *Mapper) AddUserToNamespace(ctx context.Context, auth Auth, id idmap.NamespaceID, user idmap.User) error {
	if _, err := m.requireSystemAdmin(ctx, auth); err != nil {
		return err
	}
	valid, err := m.lookup.IsValidUser(ctx, user)
	if err != nil {
		return err
	}
	if !valid {
		return idmap.NewErrorf(idmap.NoSuchUser, "%s", user)
	}
	return m.store.AddUserToNamespace(ctx, id, user)
}

// RemoveUserFromNamespace removes a user from a namespace's admin set.
// System admin only.
func (m *Mapper) RemoveUserFromNamespace(ctx context.Context, auth Auth, id idmap.NamespaceID, user idmap.User) error {
	if _, err := m.requireSystemAdmin(ctx, auth); err != nil {
		return err
	}
	return m.store.RemoveUserFromNamespace(ctx, id, user)
}

// SetNamespacePubliclyMappable toggles public mappability. Namespace
// admin only.
func (m *Mapper) SetNamespacePubliclyMappable(ctx context.Context, auth Auth, id idmap.NamespaceID, publiclyMappable bool) error {
	user, _, err := m.authenticate(ctx, auth)
	if err != nil {
		return err
	}
	ns, err := m.store.GetNamespace(ctx, id)
	if err != nil {
		return err
	}
	if !ns.IsAdmin(user) {
		return idmap.NewErrorf(idmap.Unauthorized, "User %s may not administrate namespace %s", user, id)
	}
	return m.store.SetNamespacePubliclyMappable(ctx, id, publiclyMappable)
}

// GetNamespace returns a namespace. Credentials are optional; the admin
// set is included only when the caller is a system admin or in the set,
// and is otherwise returned empty.
func (m *Mapper) GetNamespace(ctx context.Context, auth *Auth, id idmap.NamespaceID) (*idmap.Namespace, error) {
	ns, err := m.store.GetNamespace(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth != nil {
		user, sysAdmin, err := m.authenticate(ctx, *auth)
		if err != nil {
			return nil, err
		}
		if sysAdmin || ns.IsAdmin(user) {
			return ns, nil
		}
	}
	return ns.WithoutAdmins(), nil
}

// GetNamespaces returns the publicly and privately mappable namespace
// IDs, each sorted. No authentication required.
func (m *Mapper) GetNamespaces(ctx context.Context) (public, private []idmap.NamespaceID, err error) {
	namespaces, err := m.store.GetNamespaces(ctx)
	if err != nil {
		return nil, nil, err
	}
	public = []idmap.NamespaceID{}
	private = []idmap.NamespaceID{}
	for _, ns := range namespaces {
		if ns.PubliclyMappable {
			public = append(public, ns.ID)
		} else {
			private = append(private, ns.ID)
		}
	}
	sortNamespaceIDs(public)
	sortNamespaceIDs(private)
	return public, private, nil
}

// CreateMapping stores a mapping. The caller must administrate the
// administrative namespace, and the other namespace unless it is publicly
// mappable.
func (m *Mapper) CreateMapping(ctx context.Context, auth Auth, adminOID, otherOID idmap.ObjectID) error {
	user, _, err := m.authenticate(ctx, auth)
	if err != nil {
		return err
	}
	adminNS, otherNS, err := m.getNamespacePair(ctx, adminOID.Namespace, otherOID.Namespace)
	if err != nil {
		return err
	}
	if !adminNS.IsAdmin(user) {
		return idmap.NewErrorf(idmap.Unauthorized, "User %s may not administrate namespace %s", user, adminNS.ID)
	}
	if !otherNS.PubliclyMappable && !otherNS.IsAdmin(user) {
		return idmap.NewErrorf(idmap.Unauthorized, "User %s may not create mappings into namespace %s", user, otherNS.ID)
	}
	return m.store.AddMapping(ctx, adminOID, otherOID)
}

// RemoveMapping removes a mapping, reporting whether one was removed. The
// caller must administrate the administrative namespace; the other
// namespace's existence is verified but no authorization applies to it.
func (m *Mapper) RemoveMapping(ctx context.Context, auth Auth, adminOID, otherOID idmap.ObjectID) (bool, error) {
	user, _, err := m.authenticate(ctx, auth)
	if err != nil {
		return false, err
	}
	adminNS, _, err := m.getNamespacePair(ctx, adminOID.Namespace, otherOID.Namespace)
	if err != nil {
		return false, err
	}
	if !adminNS.IsAdmin(user) {
		return false, idmap.NewErrorf(idmap.Unauthorized, "User %s may not administrate namespace %s", user, adminNS.ID)
	}
	return m.store.RemoveMapping(ctx, adminOID, otherOID)
}

// GetMappings looks up the mappings for an object ID in both directions,
// optionally filtered to a set of namespaces. No authentication required.
// The object's namespace and every filter namespace must exist.
func (m *Mapper) GetMappings(ctx context.Context, oid idmap.ObjectID, filter []idmap.NamespaceID) (forward, reverse []idmap.ObjectID, err error) {
	ids := append([]idmap.NamespaceID{oid.Namespace}, filter...)
	if _, err := m.store.GetNamespaces(ctx, ids...); err != nil {
		return nil, nil, err
	}
	forward, reverse, err = m.store.FindMappings(ctx, oid, filter)
	if err != nil {
		return nil, nil, err
	}
	sortObjectIDs(forward)
	sortObjectIDs(reverse)
	return forward, reverse, nil
}

// getNamespacePair batch-loads two namespaces, which doubles as the
// existence check. The IDs may be equal (intra-namespace mappings).
func (m *Mapper) getNamespacePair(ctx context.Context, adminID, otherID idmap.NamespaceID) (adminNS, otherNS *idmap.Namespace, err error) {
	ids := []idmap.NamespaceID{adminID}
	if otherID != adminID {
		ids = append(ids, otherID)
	}
	namespaces, err := m.store.GetNamespaces(ctx, ids...)
	if err != nil {
		return nil, nil, err
	}
	for _, ns := range namespaces {
		if ns.ID == adminID {
			adminNS = ns
		}
		if ns.ID == otherID {
			otherNS = ns
		}
	}
	if adminNS == nil || otherNS == nil {
		// GetNamespaces guarantees all requested IDs are present
		return nil, nil, fmt.Errorf("storage returned an incomplete namespace batch for %v", ids)
	}
	return adminNS, otherNS, nil
}

func sortNamespaceIDs(ids []idmap.NamespaceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortObjectIDs(oids []idmap.ObjectID) {
	sort.Slice(oids, func(i, j int) bool {
		if oids[i].Namespace != oids[j].Namespace {
			return oids[i].Namespace < oids[j].Namespace
		}
		return oids[i].ID < oids[j].ID
	})
}
