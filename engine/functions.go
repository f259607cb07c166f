package engine

import (
	"database/sql/driver"
	"fmt"

	sqlite "modernc.org/sqlite"

	"github.com/litevec/litevec/vector"
)

// RegisterVectorFunctions registers the vector_distance(a, b, metric) scalar
// function with the driver so it is available on connections opened after
// this call. Call it once, before opening the database.
//
// vector_distance takes two embedding BLOBs and a metric name (COSINE, DOT,
// EUCLIDEAN, EUCLIDEAN_SQUARED, MANHATTAN) and returns the raw distance as a
// REAL. NULL operands yield NULL.
func RegisterVectorFunctions() error {
	// Idempotent registration; the driver rejects duplicates, which is fine.
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance", 3, vectorDistanceImpl)
	return nil
}

func vectorDistanceImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("vector_distance: expected 3 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	name, err := asText(args[2])
	if err != nil {
		return nil, err
	}
	metric, err := vector.ParseMetric(name)
	if err != nil {
		return nil, fmt.Errorf("vector_distance: %w", err)
	}
	return metric.Distance(a, b)
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.Decode(v)
	default:
		return nil, fmt.Errorf("vector_distance: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func asText(arg driver.Value) (string, error) {
	switch v := arg.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("vector_distance: unsupported argument type %T for metric; want TEXT", arg)
	}
}
