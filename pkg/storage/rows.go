package storage

// Row types are internal to the storage package; the domain types in
// pkg/idmap carry no persistence tags.

// localUserRow maps a local user to their token hash and admin bit.
type localUserRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Username  string `gorm:"uniqueIndex;not null;size:100"`
	TokenHash string `gorm:"uniqueIndex;not null;size:64"`
	Admin     bool   `gorm:"not null;default:false"`
}

func (localUserRow) TableName() string { return "local_users" }

// namespaceRow holds a namespace and its public mappability flag.
type namespaceRow struct {
	Name             string `gorm:"primaryKey;size:256"`
	PubliclyMappable bool   `gorm:"not null;default:false"`
}

func (namespaceRow) TableName() string { return "namespaces" }

// namespaceAdminRow is one entry of a namespace's admin set.
type namespaceAdminRow struct {
	Namespace  string `gorm:"primaryKey;size:256"`
	Authsource string `gorm:"primaryKey;size:20"`
	Username   string `gorm:"primaryKey;size:100"`
}

func (namespaceAdminRow) TableName() string { return "namespace_admins" }

// mappingRow is one mapping pair. The composite primary key enforces pair
// uniqueness; the secondary index backs reverse lookup.
type mappingRow struct {
	PrimaryNS   string `gorm:"primaryKey;size:256"`
	PrimaryID   string `gorm:"primaryKey;size:1000"`
	SecondaryNS string `gorm:"primaryKey;size:256;index:idx_mappings_secondary"`
	SecondaryID string `gorm:"primaryKey;size:1000;index:idx_mappings_secondary"`
}

func (mappingRow) TableName() string { return "mappings" }

// schemaVersionRow records the storage schema version.
type schemaVersionRow struct {
	ID      int `gorm:"primaryKey"`
	Version int `gorm:"not null"`
}

func (schemaVersionRow) TableName() string { return "schema_version" }

// allRows returns every row type for migration.
func allRows() []any {
	return []any{
		&localUserRow{},
		&namespaceRow{},
		&namespaceAdminRow{},
		&mappingRow{},
		&schemaVersionRow{},
	}
}
