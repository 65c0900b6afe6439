// Package cache implements the on-disk extract cache used by the
// extract-then-load method (C7's extractLoad), grounded on
// original_source/trino_migration/cache.py's DataCache. Rows are
// serialized with encoding/gob in place of the original's Parquet file,
// since the example pack carries no Arrow/Parquet library; see DESIGN.md
// for the justification.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pgmigrate/internal/model"
)

// Metadata records the shape of one cached extract, grounded on
// cache.py's CacheMetadata.
type Metadata struct {
	Catalog  string    `json:"catalog"`
	Schema   string    `json:"schema"`
	Table    string    `json:"table"`
	RowCount int       `json:"row_count"`
	Columns  []string  `json:"columns"`
	CachedAt time.Time `json:"cached_at"`
}

const (
	dataFileName     = "data.gob"
	metadataFileName = "metadata.json"
)

func init() {
	// model.Value.Payload is an any holding one of these concrete types
	// (internal/model/value.go); gob requires each to be registered
	// before it can encode/decode a value stored behind an interface.
	gob.Register(time.Time{})
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register([]byte(nil))
	gob.Register(false)
}

// Store manages one root directory of per-table cache subdirectories.
type Store struct {
	Root string
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

func (s *Store) pathFor(catalog, schemaName, table string) string {
	dirName := fmt.Sprintf("%s.%s.%s", catalog, schemaName, table)
	return filepath.Join(s.Root, dirName)
}

// Exists reports whether both the data file and metadata file are
// present, grounded on cache.py's DataCache.exists.
func (s *Store) Exists(catalog, schemaName, table string) bool {
	dir := s.pathFor(catalog, schemaName, table)
	_, dataErr := os.Stat(filepath.Join(dir, dataFileName))
	_, metaErr := os.Stat(filepath.Join(dir, metadataFileName))
	return dataErr == nil && metaErr == nil
}

// Save writes rows and metadata to disk, writing the data file before the
// metadata file so metadata.json's presence is the commit point, grounded
// on cache.py's DataCache.save.
func (s *Store) Save(catalog, schemaName, table string, rows []model.Row, columns []string) error {
	dir := s.pathFor(catalog, schemaName, table)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	dataPath := filepath.Join(dir, dataFileName)
	dataFile, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating cache data file: %w", err)
	}
	if err := gob.NewEncoder(dataFile).Encode(rows); err != nil {
		dataFile.Close()
		return fmt.Errorf("encoding cache data: %w", err)
	}
	if err := dataFile.Close(); err != nil {
		return fmt.Errorf("closing cache data file: %w", err)
	}

	meta := Metadata{
		Catalog:  catalog,
		Schema:   schemaName,
		Table:    table,
		RowCount: len(rows),
		Columns:  columns,
		CachedAt: time.Now(),
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), metaBytes, 0o644); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}
	return nil
}

// Load reads back rows and metadata, erroring if either file is absent,
// grounded on cache.py's DataCache.load.
func (s *Store) Load(catalog, schemaName, table string) ([]model.Row, Metadata, error) {
	dir := s.pathFor(catalog, schemaName, table)

	metaBytes, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("reading cache metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, Metadata{}, fmt.Errorf("decoding cache metadata: %w", err)
	}

	dataFile, err := os.Open(filepath.Join(dir, dataFileName))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("opening cache data file: %w", err)
	}
	defer dataFile.Close()

	var rows []model.Row
	if err := gob.NewDecoder(dataFile).Decode(&rows); err != nil {
		return nil, Metadata{}, fmt.Errorf("decoding cache data: %w", err)
	}
	return rows, meta, nil
}

// Delete removes one table's cache directory entirely.
func (s *Store) Delete(catalog, schemaName, table string) error {
	return os.RemoveAll(s.pathFor(catalog, schemaName, table))
}

// ClearAll removes every cached table under Root.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache root: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.Root, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// ListCached enumerates the metadata of every cached table under Root,
// grounded on cache.py's DataCache.list_cached.
func (s *Store) ListCached() ([]Metadata, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache root: %w", err)
	}

	var out []Metadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metaPath := filepath.Join(s.Root, e.Name(), metadataFileName)
		metaBytes, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}
