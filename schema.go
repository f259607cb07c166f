package litevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	registryTable     = "vector_collections"
	indexStorageTable = "vector_index_storage"
)

const registryDDL = `CREATE TABLE IF NOT EXISTS ` + registryTable + ` (
	name TEXT PRIMARY KEY,
	dimensions INTEGER NOT NULL,
	metric TEXT NOT NULL,
	index_type TEXT NOT NULL,
	search_accuracy INTEGER NOT NULL,
	normalized INTEGER NOT NULL,
	ivf_partitions INTEGER NOT NULL,
	hnsw_neighbors INTEGER NOT NULL,
	hnsw_ef_construction INTEGER NOT NULL
)`

const indexStorageDDL = `CREATE TABLE IF NOT EXISTS ` + indexStorageTable + ` (
	collection TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// EnsureSchema creates the collection table, the collection registry, and the
// index storage table if they do not exist, and records this collection's
// shape in the registry. A registry row left by an earlier run must agree
// with the current configuration; a mismatch fails with SchemaError rather
// than silently reinterpreting stored embeddings.
//
// With cfg.DropFirst the pre-existing collection, its registry row, and its
// persisted index are destroyed first.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.cfg.DropFirst {
		if err := s.dropCollection(ctx); err != nil {
			return err
		}
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB NOT NULL
)`, s.cfg.Table)
	for _, stmt := range []string{ddl, registryDDL, indexStorageDDL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &SchemaError{Err: err}
		}
	}
	if err := s.registerCollection(ctx); err != nil {
		return err
	}
	s.logger.Debug("schema ready", zap.String("table", s.cfg.Table), zap.Stringer("config", s.cfg))
	return nil
}

func (s *Store) dropCollection(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.cfg.Table)); err != nil {
		return &SchemaError{Err: err}
	}
	// Registry and index storage may not exist yet on a fresh database.
	for _, stmt := range []string{
		fmt.Sprintf("DELETE FROM %s WHERE name = ?", registryTable),
		fmt.Sprintf("DELETE FROM %s WHERE collection = ?", indexStorageTable),
	} {
		if _, err := s.db.ExecContext(ctx, stmt, s.cfg.Table); err != nil && !isMissingTable(err) {
			return &SchemaError{Err: err}
		}
	}
	s.logger.Debug("dropped collection", zap.String("table", s.cfg.Table))
	return nil
}

// registerCollection inserts the collection's shape or verifies it against a
// row recorded by an earlier run.
func (s *Store) registerCollection(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT dimensions, metric, index_type, normalized FROM %s WHERE name = ?", registryTable),
		s.cfg.Table)
	var (
		dims       int
		metric     string
		indexType  string
		normalized bool
	)
	switch err := row.Scan(&dims, &metric, &indexType, &normalized); {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s
	(name, dimensions, metric, index_type, search_accuracy, normalized, ivf_partitions, hnsw_neighbors, hnsw_ef_construction)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, registryTable),
			s.cfg.Table, s.cfg.Dimensions, string(s.cfg.Metric), string(s.cfg.IndexType),
			s.cfg.SearchAccuracy, s.cfg.ForcedNormalization, s.cfg.IVFPartitions,
			s.cfg.HNSWNeighbors, s.cfg.HNSWEFConstruction)
		if err != nil {
			return &SchemaError{Err: err}
		}
		return nil
	case err != nil:
		return &SchemaError{Err: err}
	}
	if dims != s.cfg.Dimensions || metric != string(s.cfg.Metric) ||
		indexType != string(s.cfg.IndexType) || normalized != s.cfg.ForcedNormalization {
		return &SchemaError{Err: fmt.Errorf(
			"collection %q already registered with dims=%d metric=%s index=%s normalized=%t, requested %s",
			s.cfg.Table, dims, metric, indexType, normalized, s.cfg)}
	}
	return nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
