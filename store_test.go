package litevec

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litevec/litevec/engine"
	"github.com/litevec/litevec/filter"
	"github.com/litevec/litevec/vector"
)

func newTestStore(t *testing.T, cfg Config) (*Store, *sql.DB) {
	t.Helper()
	require.NoError(t, engine.RegisterVectorFunctions())
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg.InitializeSchema = true
	store, err := New(db, cfg)
	require.NoError(t, err)
	return store, db
}

func cosineStore(t *testing.T) *Store {
	t.Helper()
	store, _ := newTestStore(t, Config{
		Dimensions:          3,
		Metric:              vector.Cosine,
		ForcedNormalization: true,
	})
	return store
}

func seedDocs(t *testing.T, store *Store) []string {
	t.Helper()
	docs := []Document{
		{ID: "a", Content: "alpha", Metadata: map[string]any{"country": "BG", "year": 2020}},
		{ID: "b", Content: "beta", Metadata: map[string]any{"country": "BG", "year": 2023}},
		{ID: "c", Content: "gamma", Metadata: map[string]any{"country": "NL", "year": 2023}},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids, err := store.Upsert(context.Background(), docs, embeddings)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids)
	return ids
}

func TestNew_InvalidConfig(t *testing.T) {
	require.NoError(t, engine.RegisterVectorFunctions())
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var cfgErr *ConfigError

	_, err = New(db, Config{Table: "bad name"})
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(db, Config{Metric: "HAMMING"})
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(db, Config{SearchAccuracy: 150})
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(db, Config{Dimensions: -1})
	require.ErrorAs(t, err, &cfgErr)
}

func TestUpsert_AssignsIDs(t *testing.T) {
	store := cosineStore(t)

	ids, err := store.Upsert(context.Background(),
		[]Document{{Content: "anonymous"}},
		[][]float32{{1, 0, 0}})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0])
}

func TestUpsert_Overwrites(t *testing.T) {
	store := cosineStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx,
		[]Document{{ID: "a", Content: "first", Metadata: map[string]any{"v": 1}}},
		[][]float32{{1, 0, 0}})
	require.NoError(t, err)

	_, err = store.Upsert(ctx,
		[]Document{{ID: "a", Content: "second", Metadata: map[string]any{"v": 2}}},
		[][]float32{{0, 1, 0}})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, SearchRequest{Vector: []float32{0, 1, 0}, TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Content)
	assert.EqualValues(t, 2, results[0].Metadata["v"])
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	store := cosineStore(t)

	_, err := store.Upsert(context.Background(),
		[]Document{{ID: "a"}, {ID: "b"}},
		[][]float32{{1, 0, 0}, {1, 0}})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	// The failed batch must leave the collection untouched.
	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsert_RejectsBadMetadata(t *testing.T) {
	store := cosineStore(t)

	_, err := store.Upsert(context.Background(),
		[]Document{{ID: "a", Metadata: map[string]any{"tags": []string{"x"}}}},
		[][]float32{{1, 0, 0}})
	require.Error(t, err)
}

func TestSimilaritySearch_Ordering(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1-results[0].Distance, results[0].Score, 1e-9)
	assert.Len(t, results[0].Embedding, 3)
}

func TestSimilaritySearch_ThresholdFilters(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 10, SimilarityThreshold: 0.99})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSimilaritySearch_ThresholdMonotonic(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)
	ctx := context.Background()

	prev := 4
	for _, threshold := range []float64{0.1, 0.9, 0.99} {
		results, err := store.SimilaritySearch(ctx,
			SearchRequest{Vector: []float32{1, 0, 0}, TopK: 10, SimilarityThreshold: threshold})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev, "threshold %v", threshold)
		prev = len(results)
	}
}

func TestSimilaritySearch_ExactMatch(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 1, SimilarityThreshold: ThresholdExactMatch})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestSimilaritySearch_MetadataFilter(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)

	results, err := store.SimilaritySearch(context.Background(), SearchRequest{
		Vector: []float32{1, 0, 0},
		TopK:   10,
		Filter: filter.And(filter.Eq("country", "BG"), filter.Gte("year", 2023)),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestSimilaritySearch_ThresholdRequiresNormalization(t *testing.T) {
	store, _ := newTestStore(t, Config{Dimensions: 3, Metric: vector.Cosine})

	_, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, SimilarityThreshold: 0.5})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSimilaritySearch_QueryDimensionMismatch(t *testing.T) {
	store := cosineStore(t)

	_, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0}})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSimilaritySearch_EmptyCollection(t *testing.T) {
	store := cosineStore(t)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilaritySearch_DotScoreRemap(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Dimensions:          3,
		Metric:              vector.Dot,
		ForcedNormalization: true,
	})
	seedDocs(t, store)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	// An identical unit vector has raw distance -1, displayed as 0.
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1, results[0].Score, 1e-6)
}

func TestSimilaritySearch_Approximate(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Dimensions:          3,
		Metric:              vector.Cosine,
		IndexType:           IndexIVF,
		SearchAccuracy:      100,
		ForcedNormalization: true,
	})
	seedDocs(t, store)

	// At 100% accuracy every partition is probed, so the approximate plan
	// must agree with the exact one.
	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0}, TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestSimilaritySearch_ApproximateAfterWrite(t *testing.T) {
	store, _ := newTestStore(t, Config{
		Dimensions:          3,
		Metric:              vector.Cosine,
		IndexType:           IndexIVF,
		SearchAccuracy:      100,
		ForcedNormalization: true,
	})
	seedDocs(t, store)
	ctx := context.Background()

	// First search builds and persists the index.
	_, err := store.SimilaritySearch(ctx, SearchRequest{Vector: []float32{1, 0, 0}})
	require.NoError(t, err)

	// A write invalidates it; the next search must see the new document.
	_, err = store.Upsert(ctx,
		[]Document{{ID: "d", Content: "delta"}},
		[][]float32{{0.95, 0.05, 0}})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, SearchRequest{Vector: []float32{1, 0, 0}, TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "d", results[1].ID)
}

func TestDelete(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)
	ctx := context.Background()

	all, err := store.Delete(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, all)

	all, err = store.Delete(ctx, []string{"c", "missing"})
	require.NoError(t, err)
	assert.False(t, all)

	results, err := store.SimilaritySearch(ctx, SearchRequest{Vector: []float32{1, 0, 0}, TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteByFilter(t *testing.T) {
	store := cosineStore(t)
	seedDocs(t, store)
	ctx := context.Background()

	deleted, err := store.DeleteByFilter(ctx, filter.Eq("year", 2023))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	results, err := store.SimilaritySearch(ctx, SearchRequest{Vector: []float32{1, 0, 0}, TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestEnsureSchema_RegistryMismatch(t *testing.T) {
	require.NoError(t, engine.RegisterVectorFunctions())
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, Config{Dimensions: 3, Metric: vector.Cosine, InitializeSchema: true})
	require.NoError(t, err)

	_, err = New(db, Config{Dimensions: 5, Metric: vector.Cosine, InitializeSchema: true})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestEnsureSchema_DropFirst(t *testing.T) {
	require.NoError(t, engine.RegisterVectorFunctions())
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := New(db, Config{Dimensions: 3, Metric: vector.Cosine, InitializeSchema: true})
	require.NoError(t, err)
	_, err = store.Upsert(context.Background(),
		[]Document{{ID: "a"}}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	// Recreating with DropFirst discards the rows and the registry row, so a
	// different shape is accepted.
	store, err = New(db, Config{
		Dimensions:       5,
		Metric:           vector.Dot,
		InitializeSchema: true,
		DropFirst:        true,
	})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(context.Background(),
		SearchRequest{Vector: []float32{1, 0, 0, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, results)
}
