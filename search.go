package litevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/litevec/litevec/index"
	"github.com/litevec/litevec/index/ivf"
	"github.com/litevec/litevec/vector"
)

// SimilaritySearch returns the documents nearest to the request vector,
// ordered by ascending distance. The plan depends on the threshold: an
// accept-all or threshold-filtered request may run through the approximate
// index when the collection targets a search accuracy, while an exact-match
// request always scans every row. Results never exceed TopK and may be empty.
func (s *Store) SimilaritySearch(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	shape, approximate, err := classify(s.cfg, req)
	if err != nil {
		return nil, err
	}
	if err := vector.CheckDimensions(req.Vector, s.cfg.Dimensions); err != nil {
		return nil, err
	}
	blob, err := vector.Encode(req.Vector, s.cfg.ForcedNormalization)
	if err != nil {
		return nil, err
	}

	var candidates []string
	if approximate {
		candidates, err = s.approximateCandidates(ctx, req.Vector)
		if err != nil {
			return nil, err
		}
		if candidates != nil && len(candidates) == 0 {
			return []SearchResult{}, nil
		}
	}

	query, args, err := renderQuery(s.cfg, req, shape, blob, candidates)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("similarity search",
		zap.String("table", s.cfg.Table),
		zap.String("query", query),
		zap.Bool("approximate", candidates != nil),
		zap.Int("candidates", len(candidates)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var (
			id, content, meta string
			embedded          []byte
			distance          float64
		)
		if err := rows.Scan(&id, &content, &meta, &embedded, &distance); err != nil {
			return nil, &QueryError{Err: err}
		}
		var metadata map[string]any
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			return nil, &QueryError{Err: fmt.Errorf("document %s: %w", id, err)}
		}
		embedding, err := vector.Decode(embedded)
		if err != nil {
			return nil, &QueryError{Err: fmt.Errorf("document %s: %w", id, err)}
		}
		results = append(results, SearchResult{
			Document:  Document{ID: id, Content: content, Metadata: metadata},
			Embedding: embedding,
			Distance:  distance,
			Score:     1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	return results, nil
}

// approximateCandidates narrows the scan to the members of the probed index
// partitions. A nil slice means the index declined (too few rows to cluster)
// and the caller should fall back to the exact scan.
func (s *Store) approximateCandidates(ctx context.Context, query []float32) ([]string, error) {
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	q := query
	if s.cfg.ForcedNormalization {
		q = vector.Normalize(query)
	}
	return idx.Query(q, 0)
}

// ensureIndex returns the collection's candidate index, loading the persisted
// snapshot or rebuilding it from the stored embeddings. A collection with no
// rows yields a nil index.
func (s *Store) ensureIndex(ctx context.Context) (index.Index, error) {
	s.idxMu.Lock()
	defer s.idxMu.Unlock()
	if s.idx != nil {
		return s.idx, nil
	}

	if idx, ok := s.loadPersistedIndex(ctx); ok {
		s.idx = idx
		return idx, nil
	}

	ids, vectors, err := s.allEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	idx := ivf.New(s.cfg.Metric, s.cfg.IVFPartitions, s.cfg.SearchAccuracy)
	if err := idx.Build(ids, vectors); err != nil {
		return nil, err
	}
	s.persistIndex(ctx, idx)
	s.idx = idx
	s.logger.Debug("built candidate index", zap.Int("vectors", len(ids)))
	return idx, nil
}

func (s *Store) loadPersistedIndex(ctx context.Context) (index.Index, bool) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE collection = ?", indexStorageTable), s.cfg.Table)
	var data []byte
	switch err := row.Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false
	case err != nil:
		if !isMissingTable(err) {
			s.logger.Warn("reading persisted index", zap.Error(err))
		}
		return nil, false
	}
	idx := ivf.New(s.cfg.Metric, s.cfg.IVFPartitions, s.cfg.SearchAccuracy)
	if err := idx.UnmarshalBinary(data); err != nil {
		s.logger.Warn("discarding corrupt persisted index", zap.Error(err))
		return nil, false
	}
	return idx, true
}

// persistIndex stores the index snapshot so later processes skip the rebuild.
// Persistence is best effort: a failure only costs a rebuild.
func (s *Store) persistIndex(ctx context.Context, idx index.Index) {
	data, err := idx.MarshalBinary()
	if err != nil {
		s.logger.Warn("marshaling candidate index", zap.Error(err))
		return
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (collection, data) VALUES (?, ?) ON CONFLICT(collection) DO UPDATE SET data = excluded.data",
		indexStorageTable), s.cfg.Table, data)
	if err != nil && !isMissingTable(err) {
		s.logger.Warn("persisting candidate index", zap.Error(err))
	}
}

// invalidateIndex drops the cached and persisted index after any write. The
// next approximate query rebuilds from the current rows.
func (s *Store) invalidateIndex(ctx context.Context) {
	s.idxMu.Lock()
	s.idx = nil
	s.idxMu.Unlock()
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE collection = ?", indexStorageTable), s.cfg.Table)
	if err != nil && !isMissingTable(err) {
		s.logger.Warn("invalidating persisted index", zap.Error(err))
	}
}

func (s *Store) allEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, embedding FROM %s", s.cfg.Table))
	if err != nil {
		return nil, nil, &QueryError{Err: err}
	}
	defer rows.Close()

	var ids []string
	var vectors [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, &QueryError{Err: err}
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, nil, &QueryError{Err: fmt.Errorf("document %s: %w", id, err)}
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &QueryError{Err: err}
	}
	return ids, vectors, nil
}
