// Package expand implements dynamic database-job expansion (C9): running
// a lookup query against a control database and substituting its results
// into a job template to produce one concrete DatabaseJob per row.
// Grounded on
// original_source/mysql_migration/migrator.py:execute_lookup_query.
package expand

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/model"
)

// placeholderRe matches a single named template placeholder, e.g.
// "{user_id}" in "laplacian_{user_id}".
var placeholderRe = regexp.MustCompile(`\{[^}]+\}`)

// Expand runs job.LookupSQL against pool and substitutes the first
// column of each result row into job.Template and job.TargetTemplate,
// producing one model.DatabaseJob per row.
func Expand(ctx context.Context, pool *dbconn.Pool, job model.DynamicDatabaseJob) ([]model.DatabaseJob, error) {
	rows, err := pool.QueryRows(ctx, job.LookupSQL)
	if err != nil {
		return nil, fmt.Errorf("running lookup query against %s: %w", job.LookupDatabase, err)
	}
	if len(rows) == 0 {
		log.Warn().Str("lookup_database", job.LookupDatabase).Str("sql", job.LookupSQL).Msg("dynamic database lookup returned no rows")
		return nil, nil
	}

	jobs := make([]model.DatabaseJob, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		value := firstColumnString(row[0].Value)

		concrete := job.DatabaseJob
		concrete.Source = applyTemplate(job.Template, value)
		if job.TargetTemplate != nil {
			target := applyTemplate(*job.TargetTemplate, value)
			concrete.Target = &target
		}
		jobs = append(jobs, concrete)
	}
	return jobs, nil
}

// applyTemplate substitutes the lookup value into the template's single
// named placeholder, e.g. "laplacian_{user_id}" with value "7" becomes
// "laplacian_7".
func applyTemplate(template, value string) string {
	return placeholderRe.ReplaceAllString(template, value)
}

func firstColumnString(v model.Value) string {
	switch v.Kind {
	case model.KindString:
		if s, ok := v.Payload.(string); ok {
			return s
		}
	case model.KindInt64:
		return fmt.Sprint(v.Payload)
	}
	return fmt.Sprint(v.Payload)
}
