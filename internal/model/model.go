// Package model holds the data types shared by every migration engine:
// connection targets, table descriptors, job definitions, and results.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// ConnTarget is an immutable connection target for a relational database or
// query-engine cluster.
type ConnTarget struct {
	Host     string
	Port     int
	User     string
	Secret   string
	Database string
	Catalog  string
	Schema   string
	Charset  string
}

// Column is an ordered column definition.
type Column struct {
	Name string
	Type string
}

var (
	s3BucketRe = regexp.MustCompile(`^s3a?://([^/]+)`)
	s3PrefixRe = regexp.MustCompile(`^s3a?://[^/]+/(.+)`)
)

// TableDescriptor is an immutable metadata snapshot of a table extracted
// from the source.
type TableDescriptor struct {
	Catalog          string
	Schema           string
	Table            string
	Columns          []Column
	PartitionColumns []string
	Location         string
	Format           string
	DDL              string
	RowCount         *int64
	Partitions       []map[string]string
}

// IsPartitioned reports whether the descriptor carries partition columns.
func (d TableDescriptor) IsPartitioned() bool {
	return len(d.PartitionColumns) > 0
}

// Bucket parses the S3-style bucket out of the descriptor's location.
func (d TableDescriptor) Bucket() (string, bool) {
	if d.Location == "" {
		return "", false
	}
	m := s3BucketRe.FindStringSubmatch(d.Location)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Prefix parses the S3-style key prefix out of the descriptor's location.
func (d TableDescriptor) Prefix() (string, bool) {
	if d.Location == "" {
		return "", false
	}
	m := s3PrefixRe.FindStringSubmatch(d.Location)
	if m == nil {
		return "", false
	}
	return strings.TrimRight(m[1], "/"), true
}

// Method is a warehouse table-migration strategy.
type Method string

const (
	MethodObjectCopy  Method = "OBJECT_COPY"
	MethodExtractLoad Method = "EXTRACT_LOAD"
)

// TableTriple names a fully qualified target table.
type TableTriple struct {
	Catalog string
	Schema  string
	Table   string
}

func (t TableTriple) String() string {
	if t.Catalog == "" {
		return fmt.Sprintf("%s.%s", t.Schema, t.Table)
	}
	return fmt.Sprintf("%s.%s.%s", t.Catalog, t.Schema, t.Table)
}

// TableJob is a source descriptor plus target overrides and migration
// options.
type TableJob struct {
	Source TableDescriptor

	TargetCatalog *string
	TargetSchema  *string
	TargetTable   *string

	Method Method

	PartitionFilter []string
	Where           *string
	RowLimit        *int

	CreateTable bool
	Truncate    bool

	// SourceCatalogName/TargetCatalogName carry the catalog names used for
	// the Iceberg-substring auto-downgrade check (§4.7); these may differ
	// from Source.Catalog/TargetCatalog when catalog identity (not the
	// descriptor's own catalog field) is what determines engine family.
	SourceCatalogName string
	TargetCatalogName string
}

// Target resolves the job's target triple, defaulting every unset field to
// the corresponding source value.
func (j TableJob) Target() TableTriple {
	t := TableTriple{Catalog: j.Source.Catalog, Schema: j.Source.Schema, Table: j.Source.Table}
	if j.TargetCatalog != nil {
		t.Catalog = *j.TargetCatalog
	}
	if j.TargetSchema != nil {
		t.Schema = *j.TargetSchema
	}
	if j.TargetTable != nil {
		t.Table = *j.TargetTable
	}
	return t
}

// ResolvedMethod implements the Iceberg-substring auto-downgrade: OBJECT_COPY
// silently becomes EXTRACT_LOAD when either side is an Iceberg-style
// catalog, since raw-file copy between Iceberg tables leaves metadata
// dangling.
func (j TableJob) ResolvedMethod() Method {
	if j.Method != MethodObjectCopy {
		return j.Method
	}
	if isIcebergCatalog(j.SourceCatalogName) || isIcebergCatalog(j.TargetCatalogName) {
		return MethodExtractLoad
	}
	return MethodObjectCopy
}

func isIcebergCatalog(name string) bool {
	return strings.Contains(strings.ToLower(name), "iceberg")
}

// Mode is a database-job table-selection mode.
type Mode string

const (
	ModeAll      Mode = "ALL"
	ModeExplicit Mode = "EXPLICIT"
)

// UserPartitionMode carries the set of user IDs a database job should
// partition its tables by.
type UserPartitionMode struct {
	UserIDs []int64
}

// DatabaseJob selects and filters the tables to migrate out of one source
// database.
type DatabaseJob struct {
	Source string
	Target *string
	Mode   Mode

	Include      []string
	Exclude      []string
	ExcludeRegex []string

	DefaultWhere *string
	DefaultLimit *int

	ExcludeDateTables bool
	UserPartition     *UserPartitionMode

	CreateTables bool
	Truncate     bool
}

// TargetName resolves the job's target database name, defaulting to Source.
func (j DatabaseJob) TargetName() string {
	if j.Target != nil && *j.Target != "" {
		return *j.Target
	}
	return j.Source
}

// DynamicDatabaseJob expands into zero or more concrete DatabaseJobs by
// running a lookup query and substituting its first-column values into
// Template/TargetTemplate.
type DynamicDatabaseJob struct {
	Template       string
	TargetTemplate *string

	LookupDatabase string
	LookupSQL      string

	DatabaseJob
}

// FKEdgeSet maps a child table to the set of parent tables it references.
// Self-edges and parents outside the owning table set are never present.
type FKEdgeSet map[string]map[string]struct{}

// AddEdge records that child references parent, dropping self-edges.
func (e FKEdgeSet) AddEdge(child, parent string) {
	if child == parent {
		return
	}
	if e[child] == nil {
		e[child] = make(map[string]struct{})
	}
	e[child][parent] = struct{}{}
}

// Status is the outcome of one migration job.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarning Status = "WARNING"
	StatusError   Status = "ERROR"
	StatusSkipped Status = "SKIPPED"
	StatusDryRun  Status = "DRY_RUN"
)

const maxResultErrors = 5

// MigrationResult is the outcome of migrating one table (relational) or one
// table/prefix (warehouse).
type MigrationResult struct {
	JobKind string
	Source  string
	Target  string
	Status  Status
	Method  Method

	Fetched  int64
	Inserted int64
	Skipped  int64

	Files      int64
	Bytes      int64
	Partitions int

	Errors []string
}

// AddError appends an error string, capping the list at five entries to
// bound memory (§7).
func (r *MigrationResult) AddError(msg string) {
	if len(r.Errors) >= maxResultErrors {
		return
	}
	r.Errors = append(r.Errors, msg)
}
