package relmigrate

import (
	"context"
	"fmt"

	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/schema"
)

// ApplyUserPartition computes a one-time per-table WHERE rewrite for
// user-partition mode (§4.6 "User-partition mode"), grounded on
// original_source/mysql_migration/migrator.py's
// get_tables_with_user_id_info. Tables without a user_id column are left
// out of the returned map entirely rather than erroring, since
// user-partition mode only applies to tables that carry the column.
func ApplyUserPartition(ctx context.Context, pool *dbconn.Pool, schemaName string, tables []string, ids []int64) (map[string]string, error) {
	inspector := schema.NewInspector(pool)
	out := make(map[string]string, len(tables))

	for _, table := range tables {
		has, err := inspector.HasColumn(ctx, schemaName, table, "user_id")
		if err != nil {
			return nil, fmt.Errorf("checking user_id column on %s.%s: %w", schemaName, table, err)
		}
		if !has {
			continue
		}
		out[table] = BuildUserFilter(ids, nil)
	}
	return out, nil
}
