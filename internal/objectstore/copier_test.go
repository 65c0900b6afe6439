package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, "archive/2024/01/data.parquet", translateKey("raw/2024/01/data.parquet", "raw", "archive"))
	assert.Equal(t, "data.parquet", translateKey("raw/data.parquet", "raw/", ""))
}

func TestPartitionPath_SortsColumnsDeterministically(t *testing.T) {
	got := partitionPath(map[string]string{"region": "us", "year": "2024", "month": "01"})
	assert.Equal(t, "month=01/region=us/year=2024", got)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "base/suffix", joinPath("base/", "/suffix"))
	assert.Equal(t, "base", joinPath("base", ""))
	assert.Equal(t, "base/suffix", joinPath("base", "suffix"))
}

func TestDiffObjects_OK(t *testing.T) {
	source := map[string]int64{"a.parquet": 100, "b.parquet": 200}
	target := map[string]int64{"a.parquet": 100, "b.parquet": 200}
	result := diffObjects(source, target)
	assert.Equal(t, VerifyOK, result.Status)
	assert.Empty(t, result.MissingKeys)
	assert.Empty(t, result.ExtraKeys)
	assert.Empty(t, result.MismatchSizes)
}

func TestDiffObjects_Empty(t *testing.T) {
	result := diffObjects(map[string]int64{}, map[string]int64{})
	assert.Equal(t, VerifyEmpty, result.Status)
}

func TestDiffObjects_MissingExtraAndSizeMismatch(t *testing.T) {
	source := map[string]int64{"a.parquet": 100, "b.parquet": 200, "c.parquet": 300}
	target := map[string]int64{"a.parquet": 999, "b.parquet": 200, "d.parquet": 400}
	result := diffObjects(source, target)
	assert.Equal(t, VerifyMismatch, result.Status)
	assert.Equal(t, []string{"c.parquet"}, result.MissingKeys)
	assert.Equal(t, []string{"d.parquet"}, result.ExtraKeys)
	assert.Equal(t, []string{"a.parquet"}, result.MismatchSizes)
}
