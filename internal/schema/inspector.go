package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/model"
)

// Inspector enumerates tables, columns, foreign keys, partitions, DDL, and
// storage location against a source pool (C3).
type Inspector struct {
	pool *dbconn.Pool
}

// NewInspector builds an Inspector over an already-open pool.
func NewInspector(pool *dbconn.Pool) *Inspector {
	return &Inspector{pool: pool}
}

// ListBaseTables enumerates base tables in schema, excluding views and
// materialized views. Per Design Notes §9, "base table" is decided by
// equality against table_type, not a richer type system.
func (i *Inspector) ListBaseTables(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := i.pool.QueryRows(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to list base tables: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Get("table_name"); ok {
			if s, ok := v.Payload.(string); ok {
				names = append(names, s)
			}
		}
	}
	return names, nil
}

// Columns fetches ordered column definitions for a table.
func (i *Inspector) Columns(ctx context.Context, schemaName, table string) ([]model.Column, error) {
	rows, err := i.pool.QueryRows(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns for %s.%s: %w", schemaName, table, err)
	}

	cols := make([]model.Column, 0, len(rows))
	for _, r := range rows {
		name, _ := r.Get("column_name")
		typ, _ := r.Get("data_type")
		cols = append(cols, model.Column{
			Name: stringOf(name.Payload),
			Type: stringOf(typ.Payload),
		})
	}
	return cols, nil
}

// HasColumn reports whether table declares a column named name.
func (i *Inspector) HasColumn(ctx context.Context, schemaName, table, name string) (bool, error) {
	cols, err := i.Columns(ctx, schemaName, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

var (
	partitionBoundInRe   = regexp.MustCompile(`(?i)FOR VALUES IN\s*\(\s*'?([^,')]+)'?`)
	partitionBoundFromRe = regexp.MustCompile(`(?i)FOR VALUES FROM\s*\(\s*'?([^,')]+)'?`)
)

// Partitions fetches one representative key/value pair per declarative
// partition (pg_inherits + pg_get_expr(relpartbound)), tolerating a
// non-partitioned table by returning (nil, nil), grounded on
// client.py:get_partitions's bare except-return-empty but built on real
// Postgres catalog introspection rather than a Hive/Trino SHOW statement.
// Only the table's first partition key column is reported, and LIST/RANGE
// bounds are reduced to their first literal, since filterPartitions only
// ever needs one representative value per partition to match against a
// filter term.
func (i *Inspector) Partitions(ctx context.Context, schemaName, table string) ([]map[string]string, error) {
	qualified := fmt.Sprintf("%s.%s", schemaName, table)

	keyRows, err := i.pool.QueryRows(ctx, fmt.Sprintf(`
		SELECT a.attname
		FROM pg_partitioned_table p
		JOIN pg_attribute a ON a.attrelid = p.partrelid AND a.attnum = p.partattrs[1]
		WHERE p.partrelid = '%s'::regclass
	`, qualified))
	if err != nil || len(keyRows) == 0 {
		return nil, nil
	}
	keyV, ok := keyRows[0].Get("attname")
	if !ok {
		return nil, nil
	}
	keyCol := stringOf(keyV.Payload)

	boundRows, err := i.pool.QueryRows(ctx, fmt.Sprintf(`
		SELECT pg_get_expr(c.relpartbound, c.oid) AS bound
		FROM pg_inherits inh
		JOIN pg_class c ON c.oid = inh.inhrelid
		WHERE inh.inhparent = '%s'::regclass
		ORDER BY c.relname
	`, qualified))
	if err != nil {
		return nil, nil
	}

	partitions := make([]map[string]string, 0, len(boundRows))
	for _, r := range boundRows {
		v, ok := r.Get("bound")
		if !ok {
			continue
		}
		val, ok := parsePartitionBoundValue(stringOf(v.Payload))
		if !ok {
			continue
		}
		partitions = append(partitions, map[string]string{keyCol: val})
	}
	return partitions, nil
}

func parsePartitionBoundValue(bound string) (string, bool) {
	if m := partitionBoundInRe.FindStringSubmatch(bound); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := partitionBoundFromRe.FindStringSubmatch(bound); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// DDL reconstructs a CREATE TABLE statement from catalog introspection:
// the column list from information_schema.columns (via Columns), plus an
// optional WITH (...) clause carrying warehouse storage metadata. This
// pool has no Hive metastore behind it, so format/location are carried as
// a plain Postgres table comment set by the writer side via `COMMENT ON
// TABLE schema.table IS "format = '...' location = '...'"`; ParseLocation
// and ParseFormat already know how to pull those back out of free text.
func (i *Inspector) DDL(ctx context.Context, schemaName, table string) (string, error) {
	cols, err := i.Columns(ctx, schemaName, table)
	if err != nil {
		return "", fmt.Errorf("failed to fetch DDL for %s.%s: %w", schemaName, table, err)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("no columns found for %s.%s", schemaName, table)
	}

	colDefs := make([]string, len(cols))
	for idx, c := range cols {
		colDefs[idx] = fmt.Sprintf("%s %s", quoteIdent(c.Name), c.Type)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s.%s (%s)", quoteIdent(schemaName), quoteIdent(table), strings.Join(colDefs, ", "))

	properties, err := i.tableStorageProperties(ctx, schemaName, table)
	if err != nil {
		return "", fmt.Errorf("failed to fetch storage properties for %s.%s: %w", schemaName, table, err)
	}
	if properties != "" {
		ddl += fmt.Sprintf(" WITH (%s)", properties)
	}
	return ddl, nil
}

// tableStorageProperties reads back the comment set by the warehouse
// writer path, via pg_catalog's obj_description.
func (i *Inspector) tableStorageProperties(ctx context.Context, schemaName, table string) (string, error) {
	qualified := fmt.Sprintf("%s.%s", schemaName, table)
	rows, err := i.pool.QueryRows(ctx, fmt.Sprintf(
		`SELECT obj_description('%s'::regclass, 'pg_class') AS comment`, qualified,
	))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	v, ok := rows[0].Get("comment")
	if !ok || v.Payload == nil {
		return "", nil
	}
	return stringOf(v.Payload), nil
}

var (
	locationRe         = regexp.MustCompile(`(?i)LOCATION\s+'([^']+)'`)
	externalLocationRe = regexp.MustCompile(`(?i)external_location\s*=\s*'([^']+)'`)
	icebergLocationRe  = regexp.MustCompile(`(?i)(?:^|[^_\w])location\s*=\s*'([^']+)'`)
	formatRe           = regexp.MustCompile(`(?i)format\s*=\s*'(\w+)'`)
)

// ParseLocation parses a storage location out of DDL text, trying, in
// order, LOCATION '…', external_location = '…', then location = '…'. First
// match wins, grounded verbatim on client.py:get_table_location.
func ParseLocation(ddl string) (string, bool) {
	if m := locationRe.FindStringSubmatch(ddl); m != nil {
		return m[1], true
	}
	if m := externalLocationRe.FindStringSubmatch(ddl); m != nil {
		return m[1], true
	}
	if m := icebergLocationRe.FindStringSubmatch(ddl); m != nil {
		return m[1], true
	}
	return "", false
}

// ParseFormat parses a storage format out of DDL text from format = '…',
// case-folded to upper, grounded on client.py:get_table_format.
func ParseFormat(ddl string) (string, bool) {
	m := formatRe.FindStringSubmatch(ddl)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// ForeignKeys fetches FK edges for a table set via
// information_schema.table_constraints joined with constraint_column_usage,
// filtered by schema and the subject table list, grounded on
// original_source/mysql_migration/migrator.py:get_foreign_key_dependencies.
func (i *Inspector) ForeignKeys(ctx context.Context, schemaName string, tables []string) (model.FKEdgeSet, error) {
	edges := make(model.FKEdgeSet, len(tables))
	if len(tables) == 0 {
		return edges, nil
	}

	tableSet := make(map[string]struct{}, len(tables))
	args := make([]any, 0, len(tables)+1)
	args = append(args, schemaName)
	placeholders := make([]string, len(tables))
	for idx, t := range tables {
		tableSet[t] = struct{}{}
		args = append(args, t)
		placeholders[idx] = fmt.Sprintf("$%d", idx+2)
	}

	query := fmt.Sprintf(`
		SELECT tc.table_name AS child, ccu.table_name AS parent
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := i.pool.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch foreign keys: %w", err)
	}

	for _, r := range rows {
		childV, _ := r.Get("child")
		parentV, _ := r.Get("parent")
		child := stringOf(childV.Payload)
		parent := stringOf(parentV.Payload)
		if _, ok := tableSet[parent]; !ok {
			continue
		}
		edges.AddEdge(child, parent)
	}
	return edges, nil
}

// RowCount counts matching rows, with an optional WHERE clause.
func (i *Inspector) RowCount(ctx context.Context, schemaName, table, where string) (int64, error) {
	if where == "" {
		where = "1=1"
	}
	query := fmt.Sprintf(`SELECT COUNT(*) AS cnt FROM %s.%s WHERE %s`, quoteIdent(schemaName), quoteIdent(table), where)
	rows, err := i.pool.QueryRows(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows for %s.%s: %w", schemaName, table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	v, _ := rows[0].Get("cnt")
	switch n := v.Payload.(type) {
	case int64:
		return n, nil
	default:
		return 0, nil
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
