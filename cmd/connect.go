package cmd

import (
	"context"
	"fmt"

	"pgmigrate/internal/dbconn"
	"pgmigrate/internal/model"
)

// connFlags holds one endpoint's connection flags, shared by every verb
// that opens a direct connection (migrate, analyze, check).
type connFlags struct {
	host     string
	port     int
	user     string
	password string
	database string
	catalog  string
	schema   string
}

func (f connFlags) target() model.ConnTarget {
	return model.ConnTarget{
		Host:     f.host,
		Port:     f.port,
		User:     f.user,
		Secret:   f.password,
		Database: f.database,
		Catalog:  f.catalog,
		Schema:   f.schema,
	}
}

func connectPool(ctx context.Context, f connFlags, label string) (*dbconn.Pool, error) {
	if f.host == "" {
		return nil, fmt.Errorf("%s connection requires --%s-host", label, label)
	}
	pool, err := dbconn.NewPool(ctx, f.target())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", label, err)
	}
	return pool, nil
}
