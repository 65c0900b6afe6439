package relmigrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestNormalizeWhere(t *testing.T) {
	assert.Equal(t, "1=1", NormalizeWhere(nil))
	assert.Equal(t, "1=1", NormalizeWhere(ptr("")))
	assert.Equal(t, "1=1", NormalizeWhere(ptr("   ")))
	assert.Equal(t, "status = 'active'", NormalizeWhere(ptr("  status = 'active'  ")))
}

func TestBuildUserFilter_NoIDs(t *testing.T) {
	assert.Equal(t, "1=1", BuildUserFilter(nil, nil))
	assert.Equal(t, "status = 'active'", BuildUserFilter(nil, ptr("status = 'active'")))
}

func TestBuildUserFilter_ReducesWhenWhereIsUniversal(t *testing.T) {
	got := BuildUserFilter([]int64{1, 2}, nil)
	assert.Equal(t, "user_id IN (1, 2)", got)
}

func TestBuildUserFilter_AndsWithExistingWhere(t *testing.T) {
	got := BuildUserFilter([]int64{7, 42}, ptr("status = 'active'"))
	assert.Equal(t, "(status = 'active') AND user_id IN (7, 42)", got)
}
