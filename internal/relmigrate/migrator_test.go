package relmigrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pgmigrate/internal/model"
)

func TestBuildInsertSQL(t *testing.T) {
	target := model.TableTriple{Schema: "public", Table: "orders"}
	sql := buildInsertSQL(target, []string{"id", "user_id", "total"}, RelColumnOptions{})
	assert.Equal(t,
		`INSERT INTO "public"."orders" (id, user_id, total) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		sql,
	)
}

func TestFilterIgnored(t *testing.T) {
	cols := []string{"id", "email", "password_hash"}
	assert.Equal(t, []string{"id", "email"}, filterIgnored(cols, []string{"password_hash"}))
	assert.Equal(t, cols, filterIgnored(cols, nil))
}

func TestProjectColumns_FillsMissingWithNull(t *testing.T) {
	row := model.Row{
		{Column: "id", Value: model.Int64Value(1)},
		{Column: "email", Value: model.StringValue("a@b.com")},
	}
	out := projectColumns(row, []string{"id", "email", "phantom"})
	assert.Len(t, out, 3)
	v, ok := out.Get("phantom")
	assert.True(t, ok)
	assert.Equal(t, model.KindNull, v.Kind)
}

func TestRelColumnOptions_Expand(t *testing.T) {
	opts := RelColumnOptions{Transform: map[string]string{
		"ssn":   "hash",
		"email": "redact",
		"notes": "nullify",
		"bio":   "left($1, 10)",
	}}
	assert.Equal(t, "encode(sha256(ssn::text::bytea), 'hex')", opts.expand("ssn"))
	assert.Equal(t, "'***REDACTED***'", opts.expand("email"))
	assert.Equal(t, "NULL", opts.expand("notes"))
	assert.Equal(t, "left(bio, 10)", opts.expand("bio"))
	assert.Equal(t, "untouched", opts.expand("untouched"))
}

func TestBuildSelectList(t *testing.T) {
	cols := []model.Column{{Name: "id"}, {Name: "email"}, {Name: "ssn"}}
	opts := RelColumnOptions{Transform: map[string]string{"email": "redact"}}
	got := buildSelectList(cols, opts)
	assert.Equal(t, `"id", '***REDACTED***' AS "email", "ssn"`, got)
}

func TestDefaultBatchSize(t *testing.T) {
	assert.Equal(t, 1000, defaultBatchSize(0))
	assert.Equal(t, 1000, defaultBatchSize(-5))
	assert.Equal(t, 250, defaultBatchSize(250))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"public"`, quoteIdent("public"))
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}
