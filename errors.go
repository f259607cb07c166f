package litevec

import (
	"fmt"

	"github.com/litevec/litevec/filter"
	"github.com/litevec/litevec/vector"
)

// ErrDimensionMismatch signals an embedding whose length differs from the
// collection's fixed dimensionality. Ingestion fails before any row is
// written; the collection is left unchanged.
var ErrDimensionMismatch = vector.ErrDimensionMismatch

// ErrUnsupportedOperator signals a filter expression node the translator
// cannot render.
var ErrUnsupportedOperator = filter.ErrUnsupportedOperator

// ConfigError reports an invalid collection configuration or an invalid
// threshold/metric/normalization combination. It is always raised before any
// statement reaches the backing store.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "litevec: invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// QueryError wraps a backing-store failure during query execution. The store
// performs no retries; callers needing retry policy wrap calls externally.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return "litevec: query execution failed: " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

// SchemaError wraps a DDL failure during EnsureSchema.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return "litevec: schema initialization failed: " + e.Err.Error()
}

func (e *SchemaError) Unwrap() error { return e.Err }
