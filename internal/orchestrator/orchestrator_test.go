package orchestrator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"pgmigrate/internal/model"
	"pgmigrate/internal/schema"
)

func TestMatchesAny(t *testing.T) {
	regexes := []*regexp.Regexp{regexp.MustCompile(`^tmp_`), regexp.MustCompile(`_bak$`)}
	assert.True(t, matchesAny(regexes, "tmp_orders"))
	assert.True(t, matchesAny(regexes, "orders_bak"))
	assert.False(t, matchesAny(regexes, "orders"))
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	got := nullableString("status = 'active'")
	assert.NotNil(t, got)
	assert.Equal(t, "status = 'active'", *got)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestWarehouseJobFromEntry(t *testing.T) {
	entry := schema.WarehouseTableEntry{
		Catalog: "iceberg", Schema: "analytics", Table: "orders",
		Method:        model.MethodExtractLoad,
		TargetCatalog: "hive",
		TargetTable:   "orders_copy",
	}
	job := warehouseJobFromEntry(entry)
	assert.Equal(t, "analytics", job.Source.Schema)
	assert.Equal(t, "orders", job.Source.Table)
	assert.Equal(t, model.MethodExtractLoad, job.Method)
	assert.Equal(t, "iceberg", job.SourceCatalogName)
	assert.Equal(t, "hive", job.TargetCatalogName)
	assert.NotNil(t, job.TargetTable)
	assert.Equal(t, "orders_copy", *job.TargetTable)
}

func TestLimits_Defaults(t *testing.T) {
	var l Limits
	assert.Equal(t, 3, l.databases())
	assert.Equal(t, 5, l.tables())

	l = Limits{MaxDatabases: 7, MaxTables: 9}
	assert.Equal(t, 7, l.databases())
	assert.Equal(t, 9, l.tables())
}
