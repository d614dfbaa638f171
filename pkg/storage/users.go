package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/idmap"
)

func (s *GORMStore) CreateLocalUser(ctx context.Context, name idmap.Username, hash idmap.HashedToken) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "create_local_user")
	defer span.End()

	row := localUserRow{
		ID:        uuid.New().String(),
		Username:  string(name),
		TokenHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			exists, exErr := s.UserExists(ctx, name)
			if exErr == nil && exists {
				return idmap.NewErrorf(idmap.UserExists, "%s", name)
			}
			return fmt.Errorf("token hash collision on user create: %w", err)
		}
		return err
	}
	return nil
}

func (s *GORMStore) UpdateLocalUserToken(ctx context.Context, name idmap.Username, hash idmap.HashedToken) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "update_local_user_token")
	defer span.End()

	result := s.db.WithContext(ctx).
		Model(&localUserRow{}).
		Where("username = ?", string(name)).
		Update("token_hash", string(hash))

	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return fmt.Errorf("token hash collision on token update: %w", result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return idmap.NewErrorf(idmap.NoSuchUser, "%s", name)
	}
	return nil
}

func (s *GORMStore) SetLocalUserAsAdmin(ctx context.Context, name idmap.Username, admin bool) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "set_local_user_admin")
	defer span.End()

	result := s.db.WithContext(ctx).
		Model(&localUserRow{}).
		Where("username = ?", string(name)).
		Update("admin", admin)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return idmap.NewErrorf(idmap.NoSuchUser, "%s", name)
	}
	return nil
}

func (s *GORMStore) GetUser(ctx context.Context, hash idmap.HashedToken) (idmap.Username, bool, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "get_user")
	defer span.End()

	var row localUserRow
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", string(hash)).
		First(&row).Error
	if err != nil {
		return "", false, convertNotFoundError(err, idmap.NewError(idmap.InvalidToken, ""))
	}
	return idmap.Username(row.Username), row.Admin, nil
}

func (s *GORMStore) UserExists(ctx context.Context, name idmap.Username) (bool, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "user_exists")
	defer span.End()

	var count int64
	err := s.db.WithContext(ctx).
		Model(&localUserRow{}).
		Where("username = ?", string(name)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GORMStore) GetUsers(ctx context.Context) (map[idmap.Username]bool, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "get_users")
	defer span.End()

	var rows []localUserRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make(map[idmap.Username]bool, len(rows))
	for _, r := range rows {
		users[idmap.Username(r.Username)] = r.Admin
	}
	return users, nil
}
