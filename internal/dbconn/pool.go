// Package dbconn wraps pgxpool for bounded concurrent sessions and exposes
// a single-use unpooled connection for server-side streaming cursors (C1).
package dbconn

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"pgmigrate/internal/model"
)

// Pool wraps a pooled set of short-lived sessions used for metadata queries
// and small writes. Generalizes internal/db/connection.go's Connection.
type Pool struct {
	pool *pgxpool.Pool
	url  string
}

// NewPool opens a connection pool against target, pings once, and logs a
// masked connection URL the same way the teacher's NewConnection does.
func NewPool(ctx context.Context, target model.ConnTarget) (*Pool, error) {
	url := buildURL(target)

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("url", maskPassword(url)).Msg("database connection pool established")

	return &Pool{pool: pool, url: url}, nil
}

// Close closes every pooled connection.
func (p *Pool) Close() {
	if p.pool != nil {
		p.pool.Close()
		log.Info().Str("url", maskPassword(p.url)).Msg("database connection pool closed")
	}
}

// Raw returns the underlying pgxpool.Pool for callers that need it
// directly (pgx.Batch, transactions).
func (p *Pool) Raw() *pgxpool.Pool { return p.pool }

// Ping tests liveness.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// QueryRows executes a small, bounded query and returns the full row list.
func (p *Pool) QueryRows(ctx context.Context, sql string, args ...any) ([]model.Row, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// Exec runs a statement with no result rows.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

func collectRows(rows pgx.Rows) ([]model.Row, error) {
	var out []model.Row
	fields := rows.FieldDescriptions()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(model.Row, len(vals))
		for i, v := range vals {
			name := ""
			if i < len(fields) {
				name = string(fields[i].Name)
			}
			row[i] = model.NamedValue{Column: name, Value: model.FromAny(v)}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func buildURL(t model.ConnTarget) string {
	db := t.Database
	if db == "" {
		db = t.Catalog
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", t.User, t.Secret, t.Host, t.Port, db)
}

// maskPassword masks the credential portion of a connection string for
// logging, same simple prefix-truncation the teacher uses.
func maskPassword(url string) string {
	if len(url) > 10 {
		return url[:10] + "***"
	}
	return "***"
}
