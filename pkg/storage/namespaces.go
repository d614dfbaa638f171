package storage

import (
	"context"

	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/idmap"
)

func (s *GORMStore) CreateNamespace(ctx context.Context, id idmap.NamespaceID) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "create_namespace", telemetry.Namespace(string(id)))
	defer span.End()

	row := namespaceRow{Name: string(id)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return idmap.NewErrorf(idmap.NamespaceExists, "%s", id)
		}
		return err
	}
	return nil
}

func (s *GORMStore) GetNamespace(ctx context.Context, id idmap.NamespaceID) (*idmap.Namespace, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "get_namespace", telemetry.Namespace(string(id)))
	defer span.End()

	var row namespaceRow
	err := s.db.WithContext(ctx).
		Where("name = ?", string(id)).
		First(&row).Error
	if err != nil {
		return nil, convertNotFoundError(err, idmap.NewErrorf(idmap.NoSuchNamespace, "%s", id))
	}

	admins, err := s.namespaceAdmins(ctx, string(id))
	if err != nil {
		return nil, err
	}
	ns := idmap.NewNamespace(id)
	ns.PubliclyMappable = row.PubliclyMappable
	ns.Admins = admins[string(id)]
	if ns.Admins == nil {
		ns.Admins = map[idmap.User]struct{}{}
	}
	return ns, nil
}

func (s *GORMStore) GetNamespaces(ctx context.Context, ids ...idmap.NamespaceID) ([]*idmap.Namespace, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "get_namespaces")
	defer span.End()

	q := s.db.WithContext(ctx).Model(&namespaceRow{})
	if len(ids) > 0 {
		q = q.Where("name IN ?", namespaceNames(ids))
	}

	var rows []namespaceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	if len(ids) > 0 && len(rows) != len(uniqueNames(ids)) {
		found := make(map[string]bool, len(rows))
		for _, r := range rows {
			found[r.Name] = true
		}
		for _, id := range ids {
			if !found[string(id)] {
				return nil, idmap.NewErrorf(idmap.NoSuchNamespace, "%s", id)
			}
		}
	}

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	admins, err := s.namespaceAdmins(ctx, names...)
	if err != nil {
		return nil, err
	}

	namespaces := make([]*idmap.Namespace, len(rows))
	for i, r := range rows {
		ns := idmap.NewNamespace(idmap.NamespaceID(r.Name))
		ns.PubliclyMappable = r.PubliclyMappable
		if a := admins[r.Name]; a != nil {
			ns.Admins = a
		}
		namespaces[i] = ns
	}
	return namespaces, nil
}

func (s *GORMStore) AddUserToNamespace(ctx context.Context, id idmap.NamespaceID, user idmap.User) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "add_user_to_namespace", telemetry.Namespace(string(id)))
	defer span.End()

	if err := s.requireNamespace(ctx, id); err != nil {
		return err
	}
	row := namespaceAdminRow{
		Namespace:  string(id),
		Authsource: string(user.Source),
		Username:   string(user.Name),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return idmap.NewErrorf(idmap.UserExists, "User %s is already an administrator of namespace %s", user, id)
		}
		return err
	}
	return nil
}

func (s *GORMStore) RemoveUserFromNamespace(ctx context.Context, id idmap.NamespaceID, user idmap.User) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "remove_user_from_namespace", telemetry.Namespace(string(id)))
	defer span.End()

	if err := s.requireNamespace(ctx, id); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("namespace = ? AND authsource = ? AND username = ?",
			string(id), string(user.Source), string(user.Name)).
		Delete(&namespaceAdminRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return idmap.NewErrorf(idmap.NoSuchUser, "User %s is not an administrator of namespace %s", user, id)
	}
	return nil
}

func (s *GORMStore) SetNamespacePubliclyMappable(ctx context.Context, id idmap.NamespaceID, publiclyMappable bool) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "set_namespace_publicly_mappable", telemetry.Namespace(string(id)))
	defer span.End()

	result := s.db.WithContext(ctx).
		Model(&namespaceRow{}).
		Where("name = ?", string(id)).
		Update("publicly_mappable", publiclyMappable)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return idmap.NewErrorf(idmap.NoSuchNamespace, "%s", id)
	}
	return nil
}

// requireNamespace fails with NoSuchNamespace if the namespace is absent.
func (s *GORMStore) requireNamespace(ctx context.Context, id idmap.NamespaceID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&namespaceRow{}).
		Where("name = ?", string(id)).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return idmap.NewErrorf(idmap.NoSuchNamespace, "%s", id)
	}
	return nil
}

// namespaceAdmins loads the admin sets for the named namespaces in one
// query, keyed by namespace name.
func (s *GORMStore) namespaceAdmins(ctx context.Context, names ...string) (map[string]map[idmap.User]struct{}, error) {
	if len(names) == 0 {
		return map[string]map[idmap.User]struct{}{}, nil
	}
	var rows []namespaceAdminRow
	err := s.db.WithContext(ctx).
		Where("namespace IN ?", names).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	admins := make(map[string]map[idmap.User]struct{}, len(names))
	for _, r := range rows {
		set := admins[r.Namespace]
		if set == nil {
			set = map[idmap.User]struct{}{}
			admins[r.Namespace] = set
		}
		user := idmap.User{
			Source: idmap.AuthsourceID(r.Authsource),
			Name:   idmap.Username(r.Username),
		}
		set[user] = struct{}{}
	}
	return admins, nil
}

func namespaceNames(ids []idmap.NamespaceID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}

func uniqueNames(ids []idmap.NamespaceID) map[idmap.NamespaceID]struct{} {
	set := make(map[idmap.NamespaceID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
