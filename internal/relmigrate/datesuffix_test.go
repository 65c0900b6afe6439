package relmigrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDateSuffixedTable(t *testing.T) {
	cases := map[string]bool{
		"orders":            false,
		"orders_20240115":   true,
		"orders_2024-01-15": true,
		"orders_240115_bak": true,
		"orders_24-01-15":   true,
		"orders_abc":        false,
		"users":             false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsDateSuffixedTable(name), name)
	}
}
