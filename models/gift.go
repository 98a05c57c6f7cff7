package models

// Gift is a catalog entry with a fixed coin cost. The catalog is seeded by
// migration and read-only at runtime.
type Gift struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Cost int64  `db:"cost" json:"cost"`
}
