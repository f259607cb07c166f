package litevec

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/litevec/litevec/embedding"
	"github.com/litevec/litevec/index"
)

// Store is a vector similarity search engine over a single collection. It is
// stateless across calls beyond the immutable configuration: the only mutable
// state is the metadata scratch buffer (lock-guarded) and the cached
// approximate index, both safe for concurrent use. Operations block on
// storage I/O and are never retried internally.
type Store struct {
	db       *sql.DB
	cfg      Config
	logger   *zap.Logger
	embedder embedding.Embedder

	// Reusable scratch buffer for metadata encoding; guarded so concurrent
	// ingestion calls cannot corrupt each other's payloads.
	encMu  sync.Mutex
	encBuf bytes.Buffer

	idxMu sync.Mutex
	idx   index.Index
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger attaches a logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEmbedder attaches the embedding provider backing UpsertTexts and
// SearchText. Provider failures surface as ingestion/query failures and are
// never retried by the store.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Store) { s.embedder = e }
}

// New validates the configuration eagerly and constructs a Store. When
// cfg.InitializeSchema is set it also runs EnsureSchema (honoring
// cfg.DropFirst). Register the vector_distance SQL function (engine package)
// before opening db.
func New(db *sql.DB, cfg Config, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("litevec: db is nil")
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Store{db: db, cfg: cfg, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if cfg.InitializeSchema {
		if err := s.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Config returns the collection configuration fixed at construction.
func (s *Store) Config() Config { return s.cfg }
