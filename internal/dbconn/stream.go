package dbconn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"pgmigrate/internal/model"
)

// StreamingConn is a single-use, unpooled session for server-side cursors
// (§4.1: "server keeps the cursor; client pulls row-by-row to bound
// memory"). The teacher never needed this because COPY already streams;
// this is the row-cursor contract C6 needs without COPY.
type StreamingConn struct {
	conn *pgx.Conn
	url  string
}

// NewStreamingConn opens one unpooled connection against target.
func NewStreamingConn(ctx context.Context, target model.ConnTarget) (*StreamingConn, error) {
	url := buildURL(target)

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open streaming connection: %w", err)
	}

	return &StreamingConn{conn: conn, url: url}, nil
}

// Close releases the underlying connection.
func (s *StreamingConn) Close(ctx context.Context) {
	if s.conn != nil {
		if err := s.conn.Close(ctx); err != nil {
			log.Warn().Err(err).Str("url", maskPassword(s.url)).Msg("error closing streaming connection")
		}
	}
}

// RowIterator is a lazy row iterator over an unbounded result set. The
// caller must Close it on every exit path.
type RowIterator struct {
	rows   pgx.Rows
	fields []pgx.FieldDescription
}

// QueryStream opens a server-side portal for sql and returns a lazy
// iterator; the caller owns Close.
func (s *StreamingConn) QueryStream(ctx context.Context, sql string, args ...any) (*RowIterator, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &RowIterator{rows: rows}, nil
}

// Next advances the iterator and returns the current row. Callers should
// check Err after Next returns false.
func (it *RowIterator) Next() (model.Row, bool) {
	if !it.rows.Next() {
		return nil, false
	}
	if it.fields == nil {
		it.fields = it.rows.FieldDescriptions()
	}
	vals, err := it.rows.Values()
	if err != nil {
		it.rows.Close()
		return nil, false
	}
	row := make(model.Row, len(vals))
	for i, v := range vals {
		name := ""
		if i < len(it.fields) {
			name = string(it.fields[i].Name)
		}
		row[i] = model.NamedValue{Column: name, Value: model.FromAny(v)}
	}
	return row, true
}

// Err returns the terminal error of the iteration, if any.
func (it *RowIterator) Err() error { return it.rows.Err() }

// Close releases the portal.
func (it *RowIterator) Close() { it.rows.Close() }

// Exec runs a statement with no result rows on the streaming connection,
// with the caller owning the explicit commit site (§4.1).
func (s *StreamingConn) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := s.conn.Exec(ctx, sql, args...)
	return err
}

// Ping tests liveness.
func (s *StreamingConn) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
