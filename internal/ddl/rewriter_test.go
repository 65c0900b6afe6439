package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgmigrate/internal/model"
)

func TestRewriter_RenamesCreateTable(t *testing.T) {
	ddl := `CREATE TABLE hive.sales.orders (
  id bigint,
  amount double
)
WITH (
  format = 'PARQUET'
)`
	r := NewRewriter()
	out := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders_v2"}, "")

	assert.True(t, strings.HasPrefix(out, "CREATE TABLE hive.sales.orders_v2"))
	assert.Contains(t, out, "format = 'PARQUET'")
}

func TestRewriter_StripsIncompatibleProperties(t *testing.T) {
	ddl := `CREATE TABLE iceberg.sales.orders (
  id bigint
)
WITH (
  format = 'PARQUET',
  max_commit_retry = 4,
  commit_retry_min_wait_ms = '100'
)`
	r := NewRewriter()
	out := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "iceberg", Schema: "sales", Table: "orders"}, "")

	assert.NotContains(t, out, "max_commit_retry")
	assert.NotContains(t, out, "commit_retry_min_wait_ms")
	assert.Contains(t, out, "format = 'PARQUET'")
	assert.NotContains(t, out, ",\n)")
}

func TestRewriter_CollapsesEmptyWith(t *testing.T) {
	ddl := `CREATE TABLE hive.sales.orders (id bigint) WITH (max_commit_retry = 4)`
	r := NewRewriter()
	out := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders"}, "")

	assert.NotContains(t, out, "WITH ()")
}

func TestRewriter_RewritesAllLocationForms(t *testing.T) {
	cases := []string{
		`CREATE TABLE hive.sales.orders (id bigint) LOCATION 's3a://src/warehouse/orders/'`,
		`CREATE TABLE hive.sales.orders (id bigint) WITH (external_location = 's3a://src/warehouse/orders/')`,
		`CREATE TABLE iceberg.sales.orders (id bigint) WITH (location = 's3a://src/warehouse/orders/')`,
	}
	r := NewRewriter()
	for _, ddl := range cases {
		out := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders"}, "s3a://tgt/warehouse/orders/")
		assert.Contains(t, out, "s3a://tgt/warehouse/orders/")
		assert.NotContains(t, out, "s3a://src/warehouse/orders/")
	}
}

func TestRewriter_IdempotentUnderRetargeting(t *testing.T) {
	ddl := `CREATE TABLE hive.sales.orders (id bigint) WITH (format = 'PARQUET')`
	r := NewRewriter()

	once := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders_x"}, "")
	twice := r.Rewrite(once, "orders_x", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders_y"}, "")
	direct := r.Rewrite(ddl, "orders", model.TableTriple{Catalog: "hive", Schema: "sales", Table: "orders_y"}, "")

	require.Equal(t, direct, twice)
}
