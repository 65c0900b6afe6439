package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePartitionBoundValue_List(t *testing.T) {
	v, ok := parsePartitionBoundValue(`FOR VALUES IN ('2024-01-01', '2024-01-02')`)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", v)
}

func TestParsePartitionBoundValue_Range(t *testing.T) {
	v, ok := parsePartitionBoundValue(`FOR VALUES FROM ('2024-07-01') TO ('2024-08-01')`)
	assert.True(t, ok)
	assert.Equal(t, "2024-07-01", v)
}

func TestParsePartitionBoundValue_Default(t *testing.T) {
	_, ok := parsePartitionBoundValue(`DEFAULT`)
	assert.False(t, ok)
}
