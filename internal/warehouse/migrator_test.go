package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pgmigrate/internal/model"
)

func TestFilterPartitions_NoFilterReturnsAll(t *testing.T) {
	partitions := []map[string]string{{"year": "2024"}, {"year": "2023"}}
	assert.Equal(t, partitions, filterPartitions(partitions, nil))
}

func TestFilterPartitions_MatchesAllTerms(t *testing.T) {
	partitions := []map[string]string{
		{"year": "2024", "month": "01"},
		{"year": "2024", "month": "02"},
		{"year": "2023", "month": "01"},
	}
	got := filterPartitions(partitions, []string{"year=2024", "month=01"})
	assert.Equal(t, []map[string]string{{"year": "2024", "month": "01"}}, got)
}

func TestPartitionMatches_GreaterEqualOperator(t *testing.T) {
	assert.True(t, partitionMatches(map[string]string{"dt": "2024-07-15"}, []string{"dt >= '2024-07-01'"}))
	assert.False(t, partitionMatches(map[string]string{"dt": "2024-06-15"}, []string{"dt >= '2024-07-01'"}))
}

func TestPartitionMatches_NumericComparison(t *testing.T) {
	assert.True(t, partitionMatches(map[string]string{"year": "2024"}, []string{"year > 2020"}))
	assert.False(t, partitionMatches(map[string]string{"year": "2019"}, []string{"year > 2020"}))
}

func TestPartitionMatches_EqualsStillWorks(t *testing.T) {
	assert.True(t, partitionMatches(map[string]string{"year": "2024"}, []string{"year=2024"}))
	assert.False(t, partitionMatches(map[string]string{"year": "2023"}, []string{"year=2024"}))
}

func TestChunkRows(t *testing.T) {
	rows := make([]model.Row, 5)
	chunks := chunkRows(rows, 2)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)
}

func TestChunkRows_Empty(t *testing.T) {
	assert.Nil(t, chunkRows(nil, 10))
}

func TestIsCommitConflict(t *testing.T) {
	assert.True(t, isCommitConflict(errString("CommitFailedException: branch main has changed")))
	assert.True(t, isCommitConflict(errString("metadata location does not match current version")))
	assert.True(t, isCommitConflict(errString("commit conflict on table snapshot")))
	assert.False(t, isCommitConflict(errString("concurrent modification")))
	assert.False(t, isCommitConflict(errString("commit failed: connection reset")))
	assert.False(t, isCommitConflict(errString("syntax error")))
}

type errString string

func (e errString) Error() string { return string(e) }
