package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pgmigrate/internal/model"
)

// RelationalPlan is the YAML plan file for the relational migrator (§6).
type RelationalPlan struct {
	Source model.ConnTarget `yaml:"-"`
	Target model.ConnTarget `yaml:"-"`

	AutoOrder          bool `yaml:"auto_order"`
	Truncate           bool `yaml:"truncate"`
	CreateTables       bool `yaml:"create_tables"`
	ExcludeDateTables  bool `yaml:"exclude_date_tables"`
	Parallel           bool `yaml:"parallel"`
	MaxWorkers         int  `yaml:"max_workers"`
	MaxTableWorkers    int  `yaml:"max_table_workers"`
	AutoCreateDatabase bool `yaml:"auto_create_database"`

	Databases        []RelDatabaseEntry  `yaml:"databases"`
	DynamicDatabases []RelDynamicDBEntry `yaml:"dynamic_databases"`
}

// RelTableEntry names one table and its optional filter/limit/column
// transforms. Accepts either a bare string or a mapping in YAML.
type RelTableEntry struct {
	Name      string            `yaml:"name"`
	Where     string            `yaml:"where,omitempty"`
	Limit     *int              `yaml:"limit,omitempty"`
	Ignore    []string          `yaml:"ignore,omitempty"`
	Transform map[string]string `yaml:"transform,omitempty"`
	Filter    string            `yaml:"filter,omitempty"`
	Truncate  bool              `yaml:"truncate,omitempty"`
}

// UnmarshalYAML accepts "table_name" or {name: ..., where: ...}.
func (t *RelTableEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&t.Name)
	}
	type plain RelTableEntry
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = RelTableEntry(p)
	return nil
}

// RelDatabaseEntry is one `databases[]` entry (§6).
type RelDatabaseEntry struct {
	Name              string          `yaml:"name"`
	TargetName        string          `yaml:"target_name,omitempty"`
	Mode              model.Mode      `yaml:"mode"`
	Exclude           []string        `yaml:"exclude,omitempty"`
	ExcludeRegex      []string        `yaml:"exclude_regex,omitempty"`
	Tables            []RelTableEntry `yaml:"tables,omitempty"`
	Where             string          `yaml:"where,omitempty"`
	Limit             *int            `yaml:"limit,omitempty"`
	ExcludeDateTables *bool           `yaml:"exclude_date_tables,omitempty"`
	LaplaceMode       bool            `yaml:"laplace_mode,omitempty"`
	UserIDs           []int64         `yaml:"user_ids,omitempty"`
}

// LookupQuery names the database and SQL a dynamic database job runs to
// produce its expansion values.
type LookupQuery struct {
	Database string `yaml:"database"`
	SQL      string `yaml:"sql"`
}

// RelDynamicDBEntry is one `dynamic_databases[]` entry (§6).
type RelDynamicDBEntry struct {
	RelDatabaseEntry `yaml:",inline"`
	Pattern          string      `yaml:"pattern"`
	TargetPattern    string      `yaml:"target_pattern,omitempty"`
	LookupQuery      LookupQuery `yaml:"lookup_query"`
}

// LoadRelationalPlan reads and validates a relational plan file.
func LoadRelationalPlan(filename string) (*RelationalPlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan RelationalPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse relational plan: %w", err)
	}

	if plan.MaxWorkers == 0 {
		plan.MaxWorkers = 3
	}
	if plan.MaxTableWorkers == 0 {
		plan.MaxTableWorkers = 5
	}

	if err := validateRelationalPlan(&plan); err != nil {
		return nil, fmt.Errorf("invalid relational plan: %w", err)
	}

	return &plan, nil
}

func validateRelationalPlan(plan *RelationalPlan) error {
	if len(plan.Databases) == 0 && len(plan.DynamicDatabases) == 0 {
		return fmt.Errorf("no databases or dynamic_databases defined")
	}
	for i, db := range plan.Databases {
		if db.Name == "" {
			return fmt.Errorf("databases[%d] has no name", i)
		}
		if db.Mode == "" {
			plan.Databases[i].Mode = model.ModeAll
		} else if db.Mode != model.ModeAll && db.Mode != model.ModeExplicit {
			return fmt.Errorf("databases[%d] (%s): unknown mode %q", i, db.Name, db.Mode)
		}
	}
	for i, dd := range plan.DynamicDatabases {
		if dd.Pattern == "" {
			return fmt.Errorf("dynamic_databases[%d] has no pattern", i)
		}
		if !hasPlaceholder(dd.Pattern) {
			return fmt.Errorf("dynamic_databases[%d]: pattern %q has no {placeholder}", i, dd.Pattern)
		}
		if dd.LookupQuery.SQL == "" {
			return fmt.Errorf("dynamic_databases[%d]: lookup_query.sql is required", i)
		}
	}
	return nil
}

func hasPlaceholder(s string) bool {
	open, shut := -1, -1
	for i, r := range s {
		if r == '{' {
			open = i
		}
		if r == '}' {
			shut = i
		}
	}
	return open >= 0 && shut > open
}

// WarehousePlan is the YAML plan file for the warehouse migrator (§6).
type WarehousePlan struct {
	Source model.ConnTarget `yaml:"-"`
	Target model.ConnTarget `yaml:"-"`

	ParallelTables     int    `yaml:"parallel_tables"`
	ParallelPartitions int    `yaml:"parallel_partitions"`
	ParallelInserts    int    `yaml:"parallel_inserts"`
	BatchSize          int    `yaml:"batch_size"`
	DryRun             bool   `yaml:"dry_run"`
	StopOnError        bool   `yaml:"stop_on_error"`
	SourceBucket       string `yaml:"source_bucket,omitempty"`
	TargetBucket       string `yaml:"target_bucket,omitempty"`

	Tables  []WarehouseTableEntry  `yaml:"tables,omitempty"`
	Schemas []WarehouseSchemaEntry `yaml:"schemas,omitempty"`
}

// WarehouseTableEntry is one `tables[]` entry (§6).
type WarehouseTableEntry struct {
	Catalog         string       `yaml:"catalog"`
	Schema          string       `yaml:"schema"`
	Table           string       `yaml:"table"`
	Method          model.Method `yaml:"method"`
	PartitionFilter []string     `yaml:"partition_filter,omitempty"`
	Where           string       `yaml:"where,omitempty"`
	TargetCatalog   string       `yaml:"target_catalog,omitempty"`
	TargetSchema    string       `yaml:"target_schema,omitempty"`
	TargetTable     string       `yaml:"target_table,omitempty"`
}

// WarehouseSchemaEntry is one `schemas[]` entry; Schema accepts a scalar or
// a sequence, and Expand turns the entry into one entry per element.
type WarehouseSchemaEntry struct {
	Catalog         string       `yaml:"catalog"`
	Schema          schemaList   `yaml:"schema"`
	Method          model.Method `yaml:"method"`
	Include         []string     `yaml:"include,omitempty"`
	IncludeRegex    []string     `yaml:"include_regex,omitempty"`
	Exclude         []string     `yaml:"exclude,omitempty"`
	PartitionFilter []string     `yaml:"partition_filter,omitempty"`
	TargetCatalog   string       `yaml:"target_catalog,omitempty"`
	TargetSchema    string       `yaml:"target_schema,omitempty"`
}

// schemaList unmarshals a YAML scalar or sequence into a []string.
type schemaList []string

func (s *schemaList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*s = []string{one}
		return nil
	}
	var many []string
	if err := value.Decode(&many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Expand returns one WarehouseSchemaEntry per element of Schema, per §6
// ("list expands into one entry per element").
func (e WarehouseSchemaEntry) Expand() []WarehouseSchemaEntry {
	out := make([]WarehouseSchemaEntry, 0, len(e.Schema))
	for _, s := range e.Schema {
		clone := e
		clone.Schema = []string{s}
		out = append(out, clone)
	}
	return out
}

// LoadWarehousePlan reads and validates a warehouse plan file.
func LoadWarehousePlan(filename string) (*WarehousePlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan WarehousePlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse warehouse plan: %w", err)
	}

	if plan.ParallelTables == 0 {
		plan.ParallelTables = 5
	}
	if plan.ParallelPartitions == 0 {
		plan.ParallelPartitions = 5
	}
	if plan.ParallelInserts == 0 {
		plan.ParallelInserts = 4
	}
	if plan.BatchSize == 0 {
		plan.BatchSize = 1000
	}

	if err := validateWarehousePlan(&plan); err != nil {
		return nil, fmt.Errorf("invalid warehouse plan: %w", err)
	}

	return &plan, nil
}

func validateWarehousePlan(plan *WarehousePlan) error {
	if len(plan.Tables) == 0 && len(plan.Schemas) == 0 {
		return fmt.Errorf("no tables or schemas defined")
	}
	for i, t := range plan.Tables {
		if t.Schema == "" || t.Table == "" {
			return fmt.Errorf("tables[%d] requires schema and table", i)
		}
		if t.Method != "" && t.Method != model.MethodObjectCopy && t.Method != model.MethodExtractLoad {
			return fmt.Errorf("tables[%d] (%s.%s): unknown method %q", i, t.Schema, t.Table, t.Method)
		}
	}
	for i, s := range plan.Schemas {
		if len(s.Schema) == 0 {
			return fmt.Errorf("schemas[%d] requires schema", i)
		}
	}
	return nil
}
