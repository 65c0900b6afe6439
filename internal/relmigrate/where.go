// Package relmigrate implements the relational table migrator (C6):
// streaming extract, batched idempotent insert, per-row retry fallback,
// user-partition rewriting, and date-suffixed-table filtering. Generalizes
// internal/copy/engine.go's Engine/copyTable, switching from the Postgres
// COPY protocol to a streaming-cursor + batched INSERT ... ON CONFLICT DO
// NOTHING model, because §4.6's per-row retry and per-batch rowcount
// accounting need row-level INSERT semantics rather than COPY's opaque
// command tag.
package relmigrate

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeWhere maps an empty or whitespace-only predicate to the
// universal predicate "1=1", otherwise returns the trimmed predicate,
// grounded on
// original_source/mysql_migration/migrator.py:normalize_where.
func NormalizeWhere(where *string) string {
	if where == nil || strings.TrimSpace(*where) == "" {
		return "1=1"
	}
	return strings.TrimSpace(*where)
}

// BuildUserFilter combines a user-ID filter with an existing WHERE,
// grounded on
// original_source/mysql_migration/migrator.py:build_user_id_where. When
// there are no ids it degrades to NormalizeWhere; when the normalized
// existing predicate is the universal "1=1" it reduces to a bare
// user_id IN (...) predicate, otherwise it ANDs the two.
func BuildUserFilter(ids []int64, where *string) string {
	if len(ids) == 0 {
		return NormalizeWhere(where)
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	userCondition := fmt.Sprintf("user_id IN (%s)", strings.Join(parts, ", "))

	existing := NormalizeWhere(where)
	if existing == "1=1" {
		return userCondition
	}
	return fmt.Sprintf("(%s) AND %s", existing, userCondition)
}
