package storage

import (
	"context"

	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/idmap"
)

func (s *GORMStore) AddMapping(ctx context.Context, primary, secondary idmap.ObjectID) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "add_mapping")
	defer span.End()

	row := mappingRow{
		PrimaryNS:   string(primary.Namespace),
		PrimaryID:   primary.ID,
		SecondaryNS: string(secondary.Namespace),
		SecondaryID: secondary.ID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			// duplicate pair, idempotent
			return nil
		}
		return err
	}
	return nil
}

func (s *GORMStore) RemoveMapping(ctx context.Context, primary, secondary idmap.ObjectID) (bool, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "remove_mapping")
	defer span.End()

	result := s.db.WithContext(ctx).
		Where("primary_ns = ? AND primary_id = ? AND secondary_ns = ? AND secondary_id = ?",
			string(primary.Namespace), primary.ID,
			string(secondary.Namespace), secondary.ID).
		Delete(&mappingRow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GORMStore) FindMappings(ctx context.Context, oid idmap.ObjectID, filter []idmap.NamespaceID) (forward, reverse []idmap.ObjectID, err error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "find_mappings", telemetry.Namespace(string(oid.Namespace)))
	defer span.End()

	fq := s.db.WithContext(ctx).
		Where("primary_ns = ? AND primary_id = ?", string(oid.Namespace), oid.ID)
	rq := s.db.WithContext(ctx).
		Where("secondary_ns = ? AND secondary_id = ?", string(oid.Namespace), oid.ID)
	if len(filter) > 0 {
		names := namespaceNames(filter)
		fq = fq.Where("secondary_ns IN ?", names)
		rq = rq.Where("primary_ns IN ?", names)
	}

	var fRows []mappingRow
	if err := fq.Find(&fRows).Error; err != nil {
		return nil, nil, err
	}
	var rRows []mappingRow
	if err := rq.Find(&rRows).Error; err != nil {
		return nil, nil, err
	}

	forward = make([]idmap.ObjectID, len(fRows))
	for i, r := range fRows {
		forward[i] = idmap.ObjectID{Namespace: idmap.NamespaceID(r.SecondaryNS), ID: r.SecondaryID}
	}
	reverse = make([]idmap.ObjectID, len(rRows))
	for i, r := range rRows {
		reverse[i] = idmap.ObjectID{Namespace: idmap.NamespaceID(r.PrimaryNS), ID: r.PrimaryID}
	}
	return forward, reverse, nil
}
