package litevec

import (
	"context"
	"fmt"
)

// UpsertTexts embeds the documents' content through the configured embedder
// and ingests them in one transaction. It requires WithEmbedder.
func (s *Store) UpsertTexts(ctx context.Context, docs []Document) ([]string, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("litevec: no embedder configured")
	}
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, docs, embeddings)
}

// SearchText embeds the query text and runs a similarity search with it. It
// requires WithEmbedder.
func (s *Store) SearchText(ctx context.Context, text string, req SearchRequest) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("litevec: no embedder configured")
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	req.Vector = vec
	return s.SimilaritySearch(ctx, req)
}
