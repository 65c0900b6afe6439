package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pgmigrate/internal/model"
)

func TestLiteralSQL(t *testing.T) {
	assert.Equal(t, "NULL", literalSQL(model.NullValue()))
	assert.Equal(t, "TRUE", literalSQL(model.BoolValue(true)))
	assert.Equal(t, "FALSE", literalSQL(model.BoolValue(false)))
	assert.Equal(t, "42", literalSQL(model.Int64Value(42)))
	assert.Equal(t, "'it''s'", literalSQL(model.StringValue("it's")))

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "TIMESTAMP '2024-03-15 10:30:00.000'", literalSQL(model.TimeValue(ts)))
}

func TestBuildValuesRow(t *testing.T) {
	row := model.Row{
		{Column: "id", Value: model.Int64Value(1)},
		{Column: "name", Value: model.StringValue("alice")},
	}
	got := buildValuesRow(row, []string{"id", "name", "missing"})
	assert.Equal(t, "(1, 'alice', NULL)", got)
}
