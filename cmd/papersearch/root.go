package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/pipeline"
)

// app carries state shared by subcommands. The pipeline is built lazily so
// commands that do not search never open the cache.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile   string
	cacheBackend string
	cachePath    string
	verbose      bool
	output       string

	cfg      *config.Config
	logger   zerolog.Logger
	store    *pipeline.CacheStore
	pipeline *pipeline.Pipeline
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "papersearch",
		Short: "Search, enrich and rank academic papers from the terminal",
		Long: `papersearch queries OpenAlex for papers, enriches them with citation data
from Semantic Scholar, deduplicates, filters and ranks the results.

Enrichment lookups are cached in a local SQLite database so repeated
searches do not hit the upstream APIs again until the cache TTL expires.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/paper-discovery/config.yaml)")
	pf.StringVar(&a.cacheBackend, "cache-backend", config.CacheBackendSQLite, "cache backend: sqlite or memory")
	pf.StringVar(&a.cachePath, "cache-path", defaultCachePath(), "SQLite cache file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	pf.StringVarP(&a.output, "output", "o", outputTable, "output format: table, json or yaml")

	root.AddCommand(
		newSearchCmd(a),
		newCitationsCmd(a),
		newRecommendCmd(a),
		newRelatedCmd(a),
		newEventsCmd(a),
		newCacheCmd(a),
	)
	return root
}

// loadConfig reads configuration and applies CLI overrides.
func (a *app) loadConfig() error {
	if err := validateOutput(a.output); err != nil {
		return err
	}

	cfg, err := config.LoadFile(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch a.cacheBackend {
	case config.CacheBackendSQLite:
		cfg.Cache.SQLitePath = a.cachePath
	case config.CacheBackendMemory:
	default:
		return fmt.Errorf("unsupported cache backend %q: use sqlite or memory", a.cacheBackend)
	}
	cfg.Cache.Backend = a.cacheBackend

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.logger = observability.NewLogger(observability.LoggingConfig{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.Kitchen,
	})
	a.cfg = cfg
	return nil
}

// searchPipeline opens the cache and builds the pipeline on first use.
func (a *app) searchPipeline() (*pipeline.Pipeline, error) {
	if a.pipeline != nil {
		return a.pipeline, nil
	}

	store, err := a.openCache()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.Build(a.cfg, store.Cache, nil, nil, a.logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.store = store
	a.pipeline = p
	return p, nil
}

func (a *app) openCache() (*pipeline.CacheStore, error) {
	if a.cfg.Cache.Backend == config.CacheBackendSQLite {
		if err := os.MkdirAll(filepath.Dir(a.cfg.Cache.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	return pipeline.OpenCache(a.cfg.Cache, nil, nil, a.logger)
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.pipeline = nil
	return err
}

// defaultCachePath places the cache under the user cache directory, falling
// back to the working directory.
func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "papersearch-cache.db"
	}
	return filepath.Join(dir, "paper-discovery", "cache.db")
}
