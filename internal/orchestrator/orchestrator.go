package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/expand"
	"pgmigrate/internal/model"
	"pgmigrate/internal/relmigrate"
	"pgmigrate/internal/scheduler"
	"pgmigrate/internal/schema"
	"pgmigrate/internal/warehouse"
)

// Limits bounds the orchestrator's two-level concurrency (§5): how many
// databases run concurrently, and how many tables within one database run
// concurrently.
type Limits struct {
	MaxDatabases int
	MaxTables    int
}

func (l Limits) databases() int {
	if l.MaxDatabases <= 0 {
		return 3
	}
	return l.MaxDatabases
}

func (l Limits) tables() int {
	if l.MaxTables <= 0 {
		return 5
	}
	return l.MaxTables
}

// Orchestrator runs relational and warehouse migration plans, fanning out
// over databases and tables within the bounds of Limits.
type Orchestrator struct {
	pool       *dbconn.Pool
	relational *relmigrate.RelationalMigrator
	warehouse  *warehouse.WarehouseMigrator
	limits     Limits

	mu      sync.Mutex
	results []model.MigrationResult
}

// NewOrchestrator builds an Orchestrator over an already-open source pool
// (used for table listing and dynamic job expansion) plus the two table
// migrators.
func NewOrchestrator(pool *dbconn.Pool, relational *relmigrate.RelationalMigrator, wh *warehouse.WarehouseMigrator, limits Limits) *Orchestrator {
	return &Orchestrator{pool: pool, relational: relational, warehouse: wh, limits: limits}
}

func (o *Orchestrator) record(r model.MigrationResult) {
	o.mu.Lock()
	o.results = append(o.results, r)
	o.mu.Unlock()
}

// RunRelationalPlan walks a relational plan's static and dynamic
// databases, resolves each database's table list and FK-dependency
// levels, and migrates level-by-level, bounded by Limits. Grounded on
// internal/copy/engine.go's Engine.Copy continue-on-error loop and
// migrate_all's semaphore-bounded asyncio.gather.
func (o *Orchestrator) RunRelationalPlan(ctx context.Context, plan *schema.RelationalPlan) []model.MigrationResult {
	o.results = nil

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Int("databases", len(plan.Databases)+len(plan.DynamicDatabases)).Msg("starting relational plan")
	defer log.Info().Str("run_id", runID).Msg("relational plan complete")

	databases := make([]schema.RelDatabaseEntry, 0, len(plan.Databases))
	databases = append(databases, plan.Databases...)

	for _, dyn := range plan.DynamicDatabases {
		expanded, err := o.expandDynamicRelational(ctx, dyn)
		if err != nil {
			o.record(model.MigrationResult{
				JobKind: "relational-database",
				Source:  dyn.Pattern,
				Status:  model.StatusError,
				Errors:  []string{err.Error()},
			})
			continue
		}
		databases = append(databases, expanded...)
	}

	dbGroup := NewTaskGroup(ctx, o.limits.databases())
	for _, entry := range databases {
		entry := entry
		dbGroup.Go(func(ctx context.Context) error {
			o.runRelationalDatabase(ctx, plan, entry)
			return nil
		})
	}
	_ = dbGroup.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.MigrationResult(nil), o.results...)
}

func (o *Orchestrator) expandDynamicRelational(ctx context.Context, dyn schema.RelDynamicDBEntry) ([]schema.RelDatabaseEntry, error) {
	job := model.DynamicDatabaseJob{
		Template:       dyn.Pattern,
		LookupDatabase: dyn.LookupQuery.Database,
		LookupSQL:      dyn.LookupQuery.SQL,
		DatabaseJob: model.DatabaseJob{
			Source: dyn.Name,
			Mode:   dyn.Mode,
		},
	}
	if dyn.TargetPattern != "" {
		t := dyn.TargetPattern
		job.TargetTemplate = &t
	}

	concrete, err := expand.Expand(ctx, o.pool, job)
	if err != nil {
		return nil, err
	}

	out := make([]schema.RelDatabaseEntry, 0, len(concrete))
	for _, c := range concrete {
		entry := dyn.RelDatabaseEntry
		entry.Name = c.Source
		entry.TargetName = c.TargetName()
		out = append(out, entry)
	}
	return out, nil
}

func (o *Orchestrator) runRelationalDatabase(ctx context.Context, plan *schema.RelationalPlan, entry schema.RelDatabaseEntry) {
	tables, err := o.resolveRelationalTables(ctx, plan, entry)
	if err != nil {
		o.record(model.MigrationResult{
			JobKind: "relational-database",
			Source:  entry.Name,
			Status:  model.StatusError,
			Errors:  []string{err.Error()},
		})
		return
	}
	if len(tables) == 0 {
		return
	}

	inspector := schema.NewInspector(o.pool)
	tableNames := make([]string, 0, len(tables))
	for _, t := range tables {
		tableNames = append(tableNames, t.Name)
	}
	edges, err := inspector.ForeignKeys(ctx, entry.Name, tableNames)
	if err != nil {
		log.Warn().Err(err).Str("database", entry.Name).Msg("failed to resolve FK dependencies, falling back to unordered level")
		edges = model.FKEdgeSet{}
	}

	levels := scheduler.Levels(tableNames, edges)

	byName := make(map[string]schema.RelTableEntry, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	tableGroup := NewTaskGroup(ctx, o.limits.tables())
	for _, level := range levels {
		for _, name := range level {
			entryTable := byName[name]
			dbEntry := entry
			tableGroup.Go(func(ctx context.Context) error {
				o.runRelationalTable(ctx, dbEntry, entryTable)
				return nil
			})
		}
		_ = tableGroup.Wait()
		tableGroup = NewTaskGroup(ctx, o.limits.tables())
	}
}

func (o *Orchestrator) runRelationalTable(ctx context.Context, entry schema.RelDatabaseEntry, table schema.RelTableEntry) {
	where := table.Where
	if where == "" {
		where = entry.Where
	}
	limit := table.Limit
	if limit == nil {
		limit = entry.Limit
	}

	target := entry.TargetName
	if target == "" {
		target = entry.Name
	}

	job := model.TableJob{
		Source:   model.TableDescriptor{Schema: entry.Name, Table: table.Name},
		Where:    nullableString(where),
		RowLimit: limit,
	}
	if target != entry.Name {
		t := target
		job.TargetSchema = &t
	}

	opts := relmigrate.Options{
		RelColumnOptions: relmigrate.RelColumnOptions{
			Ignore:    table.Ignore,
			Transform: table.Transform,
		},
	}

	result := o.relational.MigrateTable(ctx, job, opts)
	o.record(result)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// resolveRelationalTables expands a database entry's table selection:
// explicit list, or every base table if Mode is ALL, filtered by
// Exclude/ExcludeRegex and (optionally) date-suffixed-table exclusion.
func (o *Orchestrator) resolveRelationalTables(ctx context.Context, plan *schema.RelationalPlan, entry schema.RelDatabaseEntry) ([]schema.RelTableEntry, error) {
	var candidates []schema.RelTableEntry

	if entry.Mode == model.ModeExplicit || len(entry.Tables) > 0 {
		candidates = entry.Tables
	} else {
		inspector := schema.NewInspector(o.pool)
		names, err := inspector.ListBaseTables(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("listing tables in %s: %w", entry.Name, err)
		}
		for _, n := range names {
			candidates = append(candidates, schema.RelTableEntry{Name: n})
		}
	}

	excludeSet := make(map[string]struct{}, len(entry.Exclude))
	for _, e := range entry.Exclude {
		excludeSet[e] = struct{}{}
	}

	excludeRegexes := make([]*regexp.Regexp, 0, len(entry.ExcludeRegex))
	for _, pattern := range entry.ExcludeRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("invalid exclude_regex, skipping")
			continue
		}
		excludeRegexes = append(excludeRegexes, re)
	}

	excludeDateTables := plan.ExcludeDateTables
	if entry.ExcludeDateTables != nil {
		excludeDateTables = *entry.ExcludeDateTables
	}

	out := make([]schema.RelTableEntry, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := excludeSet[c.Name]; skip {
			continue
		}
		if matchesAny(excludeRegexes, c.Name) {
			continue
		}
		if excludeDateTables && relmigrate.IsDateSuffixedTable(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesAny(regexes []*regexp.Regexp, name string) bool {
	for _, re := range regexes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// RunWarehousePlan walks a warehouse plan's explicit tables and expanded
// schema entries, migrating each table through the warehouse migrator,
// bounded by Limits.MaxTables.
func (o *Orchestrator) RunWarehousePlan(ctx context.Context, plan *schema.WarehousePlan) []model.MigrationResult {
	o.results = nil

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Int("tables", len(plan.Tables)).Int("schemas", len(plan.Schemas)).Msg("starting warehouse plan")
	defer log.Info().Str("run_id", runID).Msg("warehouse plan complete")

	jobs := make([]model.TableJob, 0, len(plan.Tables))
	for _, t := range plan.Tables {
		jobs = append(jobs, warehouseJobFromEntry(t))
	}

	inspector := schema.NewInspector(o.pool)
	for _, se := range plan.Schemas {
		for _, expanded := range se.Expand() {
			tables, err := inspector.ListBaseTables(ctx, string(expanded.Schema[0]))
			if err != nil {
				o.record(model.MigrationResult{
					JobKind: "warehouse-schema",
					Source:  expanded.Catalog,
					Status:  model.StatusError,
					Errors:  []string{err.Error()},
				})
				continue
			}
			for _, name := range tables {
				jobs = append(jobs, model.TableJob{
					Source: model.TableDescriptor{
						Catalog: expanded.Catalog,
						Schema:  string(expanded.Schema[0]),
						Table:   name,
					},
					Method:            expanded.Method,
					PartitionFilter:   expanded.PartitionFilter,
					SourceCatalogName: expanded.Catalog,
					TargetCatalogName: firstNonEmpty(expanded.TargetCatalog, expanded.Catalog),
				})
			}
		}
	}

	opts := warehouse.Options{
		BatchSize:       plan.BatchSize,
		ParallelInserts: plan.ParallelInserts,
		SourceBucket:    plan.SourceBucket,
		TargetBucket:    plan.TargetBucket,
	}

	group := NewTaskGroup(ctx, o.limits.tables())
	for _, job := range jobs {
		job := job
		group.Go(func(ctx context.Context) error {
			o.record(o.warehouse.MigrateTable(ctx, job, opts))
			return nil
		})
	}
	_ = group.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.MigrationResult(nil), o.results...)
}

func warehouseJobFromEntry(t schema.WarehouseTableEntry) model.TableJob {
	job := model.TableJob{
		Source:            model.TableDescriptor{Catalog: t.Catalog, Schema: t.Schema, Table: t.Table},
		Method:            t.Method,
		PartitionFilter:   t.PartitionFilter,
		SourceCatalogName: t.Catalog,
		TargetCatalogName: firstNonEmpty(t.TargetCatalog, t.Catalog),
	}
	if t.TargetCatalog != "" {
		v := t.TargetCatalog
		job.TargetCatalog = &v
	}
	if t.TargetSchema != "" {
		v := t.TargetSchema
		job.TargetSchema = &v
	}
	if t.TargetTable != "" {
		v := t.TargetTable
		job.TargetTable = &v
	}
	if t.Where != "" {
		v := t.Where
		job.Where = &v
	}
	return job
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
