package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize is used when the caller passes no page size
const DefaultPageSize = 20

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (updated_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// Returns the default sort if field is not in the whitelist.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// Page normalizes pagination input and returns the offset
func Page(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// IsNotFound reports a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// forUpdate takes a row lock on the selected rows for the rest of the transaction.
// SQLite ignores the clause and serializes writers instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// UpsertResult reports what an upsert did to the stored row
type UpsertResult string

const (
	UpsertCreated   UpsertResult = "created"
	UpsertUpdated   UpsertResult = "updated"
	UpsertUnchanged UpsertResult = "unchanged"
)

// upsertByKey inserts row, or on a conflict of the key columns updates cols.
// An existing row equal to the input per same is left untouched. row is reloaded
// from the database afterwards so its ID is the stored one.
func upsertByKey[T any](ctx context.Context, db *gorm.DB, row *T, key map[string]interface{}, cols []string, same func(existing, incoming *T) bool) (UpsertResult, error) {
	var existing T
	found := true
	if err := db.WithContext(ctx).Where(key).First(&existing).Error; err != nil {
		if !IsNotFound(err) {
			return "", err
		}
		found = false
	}
	if found && same(&existing, row) {
		*row = existing
		return UpsertUnchanged, nil
	}

	names := make([]string, 0, len(key))
	for k := range key {
		names = append(names, k)
	}
	sort.Strings(names)
	conflict := make([]clause.Column, 0, len(names))
	for _, n := range names {
		conflict = append(conflict, clause.Column{Name: n})
	}

	updates := append(append([]string{}, cols...), "updated_at", "updated_by")
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: conflict, DoUpdates: clause.AssignmentColumns(updates)}).
		Create(row).Error
	if err != nil {
		return "", err
	}

	var stored T
	if err := db.WithContext(ctx).Where(key).First(&stored).Error; err != nil {
		return "", err
	}
	*row = stored
	if found {
		return UpsertUpdated, nil
	}
	return UpsertCreated, nil
}

// activeCodeExists reports whether an active, non-deleted master row has the code
func activeCodeExists(ctx context.Context, db *gorm.DB, model interface{}, code string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).
		Where("code = ? AND is_active = ?", code, true).
		Count(&n).Error
	return n > 0, err
}
