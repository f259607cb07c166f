package litevec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/litevec/litevec/filter"
	"github.com/litevec/litevec/vector"
)

// Upsert ingests documents with their embeddings in a single transaction:
// either every document lands or none does. Documents with an empty ID are
// assigned a fresh UUID; documents whose ID already exists have content,
// metadata, and embedding overwritten atomically. The returned slice holds
// the effective ID of each document in input order.
func (s *Store) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) ([]string, error) {
	if len(docs) != len(embeddings) {
		return nil, fmt.Errorf("litevec: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET content = excluded.content, metadata = excluded.metadata, embedding = excluded.embedding`,
		s.cfg.Table))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := s.encodeMetadata(doc.Metadata)
		if err != nil {
			return nil, err
		}
		if err := vector.CheckDimensions(embeddings[i], s.cfg.Dimensions); err != nil {
			return nil, err
		}
		blob, err := vector.Encode(embeddings[i], s.cfg.ForcedNormalization)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, id, doc.Content, meta, blob); err != nil {
			return nil, err
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.invalidateIndex(ctx)
	s.logger.Debug("upserted documents", zap.Int("count", len(ids)), zap.String("table", s.cfg.Table))
	return ids, nil
}

// Delete removes documents by ID in one transaction. It reports true only
// when every requested ID existed and was removed; missing IDs are not an
// error.
func (s *Store) Delete(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.cfg.Table))
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	var deleted int64
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	s.invalidateIndex(ctx)
	s.logger.Debug("deleted documents", zap.Int64("deleted", deleted), zap.Int("requested", len(ids)))
	return deleted == int64(len(ids)), nil
}

// DeleteByFilter removes every document matching the metadata filter and
// returns the number of rows removed.
func (s *Store) DeleteByFilter(ctx context.Context, expr *filter.Expression) (int64, error) {
	if expr == nil {
		return 0, fmt.Errorf("litevec: delete filter is nil")
	}
	where, args, err := filter.SQL(expr, "metadata")
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", s.cfg.Table, where), args...)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.invalidateIndex(ctx)
	}
	s.logger.Debug("deleted by filter", zap.Int64("deleted", deleted), zap.Stringer("filter", expr))
	return deleted, nil
}

// encodeMetadata serializes metadata to its JSON text form, rejecting value
// types that the filter translator cannot later match against. The scratch
// buffer is reused across calls under encMu.
func (s *Store) encodeMetadata(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	for key, value := range meta {
		switch value.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		default:
			return "", fmt.Errorf("litevec: metadata key %q has unsupported value type %T", key, value)
		}
	}
	s.encMu.Lock()
	defer s.encMu.Unlock()
	s.encBuf.Reset()
	enc := json.NewEncoder(&s.encBuf)
	if err := enc.Encode(meta); err != nil {
		return "", err
	}
	// Encoder appends a trailing newline.
	out := s.encBuf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return string(out), nil
}
