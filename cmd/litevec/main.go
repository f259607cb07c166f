package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/litevec/litevec"
	"github.com/litevec/litevec/embedding/openai"
	"github.com/litevec/litevec/engine"
	"github.com/litevec/litevec/filter"
	"github.com/litevec/litevec/internal/config"
	"github.com/litevec/litevec/vector"
)

var (
	configPath string
	debug      bool

	topK      int
	threshold float64
	filterEq  []string

	dropFirst bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "litevec",
		Short: "Embedded vector similarity search on SQLite",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "litevec.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the collection schema",
		RunE:  runInit,
	}
	initCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop an existing collection first")

	addCmd := &cobra.Command{
		Use:   "add [content...]",
		Short: "Embed and ingest documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAdd,
	}

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the collection by text",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVarP(&topK, "top-k", "k", litevec.DefaultTopK, "Maximum result count")
	searchCmd.Flags().Float64VarP(&threshold, "threshold", "t", litevec.ThresholdAcceptAll, "Similarity threshold in [0, 1]")
	searchCmd.Flags().StringArrayVar(&filterEq, "where", nil, "Metadata equality filter key=value (repeatable, ANDed)")

	deleteCmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete documents by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDelete,
	}

	rootCmd.AddCommand(initCmd, addCmd, searchCmd, deleteCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(withSchema bool) (*litevec.Store, *sql.DB, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := engine.RegisterVectorFunctions(); err != nil {
		return nil, nil, nil, err
	}
	db, err := engine.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	metric, err := vector.ParseMetric(cfg.Store.Metric)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	storeCfg := litevec.Config{
		Table:               cfg.Store.Table,
		Dimensions:          cfg.Store.Dimensions,
		Metric:              metric,
		IndexType:           litevec.IndexType(cfg.Store.IndexType),
		SearchAccuracy:      cfg.Store.SearchAccuracy,
		ForcedNormalization: cfg.Store.ForcedNormalization,
		InitializeSchema:    withSchema,
		DropFirst:           withSchema && dropFirst,
		IVFPartitions:       cfg.Store.IVFPartitions,
		HNSWNeighbors:       cfg.Store.HNSWNeighbors,
		HNSWEFConstruction:  cfg.Store.HNSWEFConstruction,
	}

	opts := []litevec.Option{litevec.WithLogger(logger)}
	if cfg.Embedding.APIKey != "" {
		opts = append(opts, litevec.WithEmbedder(openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})))
	}
	store, err := litevec.New(db, storeCfg, opts...)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return store, db, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if debug {
		level = "debug"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func runInit(cmd *cobra.Command, args []string) error {
	store, db, logger, err := openStore(true)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("collection ready", zap.Stringer("config", store.Config()))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	store, db, _, err := openStore(false)
	if err != nil {
		return err
	}
	defer db.Close()

	docs := make([]litevec.Document, len(args))
	for i, content := range args {
		docs[i] = litevec.Document{Content: content}
	}
	ids, err := store.UpsertTexts(cmd.Context(), docs)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	store, db, _, err := openStore(false)
	if err != nil {
		return err
	}
	defer db.Close()

	expr, err := parseWhere(filterEq)
	if err != nil {
		return err
	}
	results, err := store.SearchText(cmd.Context(), args[0], litevec.SearchRequest{
		TopK:                topK,
		SimilarityThreshold: threshold,
		Filter:              expr,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(map[string]any{
			"id":       r.ID,
			"content":  r.Content,
			"metadata": r.Metadata,
			"distance": r.Distance,
			"score":    r.Score,
		}); err != nil {
			return err
		}
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, db, _, err := openStore(false)
	if err != nil {
		return err
	}
	defer db.Close()

	all, err := store.Delete(cmd.Context(), args)
	if err != nil {
		return err
	}
	if !all {
		fmt.Fprintln(os.Stderr, "some ids were not found")
	}
	return nil
}

// parseWhere turns repeated key=value flags into an ANDed equality filter.
func parseWhere(pairs []string) (*filter.Expression, error) {
	var expr *filter.Expression
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q, want key=value", pair)
		}
		leaf := filter.Eq(key, value)
		if expr == nil {
			expr = leaf
		} else {
			expr = filter.And(expr, leaf)
		}
	}
	return expr, nil
}
