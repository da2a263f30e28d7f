// Package library is the engine behind the wire facades: the
// composition root owning the catalog store, blob store, extractors,
// external services, scrobblers, search engine and background tasks,
// plus the import pipeline and the download orchestrator.
package library

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonarhq/sonar/pkg/blob"
	"github.com/sonarhq/sonar/pkg/extractor"
	"github.com/sonarhq/sonar/pkg/external"
	"github.com/sonarhq/sonar/pkg/sonar"
	"github.com/sonarhq/sonar/pkg/store"
)

// Config assembles a Context. Registration of extractors, scrobblers,
// external services and the search engine is one-shot; there are no
// process-wide singletons and tests create a fresh context per case.
type Config struct {
	// DatabasePath is the catalog SQLite file, or ":memory:".
	DatabasePath string
	// BlobStore holds audio and image bytes.
	BlobStore blob.Store
	// StorageDir holds the external-service resource index. Empty
	// disables the index.
	StorageDir string

	Extractors        []extractor.Named
	Scrobblers        []sonar.Scrobbler
	ExternalServices  []sonar.ExternalService
	MetadataProviders []sonar.MetadataProvider
	// SearchEngine overrides the built-in substring engine.
	SearchEngine sonar.SearchEngine

	// FFmpegPath locates the external codec binary. Defaults to
	// "ffmpeg" on PATH.
	FFmpegPath string
	// CallTimeout bounds each external RPC and codec subprocess run.
	CallTimeout time.Duration
	// MaxDownloadAttempts caps download retries before a request is
	// marked failed.
	MaxDownloadAttempts int
	// DownloadBackoffCeiling caps the exponential retry backoff.
	DownloadBackoffCeiling time.Duration
	// GCInterval is the sweep cadence. Zero disables the sweeper.
	GCInterval time.Duration
	// DisableWorkers skips spawning the background loops. Used by
	// tests that drive iterations directly.
	DisableWorkers bool
}

func (c *Config) withDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Minute
	}
	if c.MaxDownloadAttempts <= 0 {
		c.MaxDownloadAttempts = 5
	}
	if c.DownloadBackoffCeiling <= 0 {
		c.DownloadBackoffCeiling = 10 * time.Minute
	}
}

// Context is the process-wide composition root.
type Context struct {
	cfg   Config
	db    *store.DB
	blobs blob.Store

	extractors []extractor.Named
	scrobblers []sonar.Scrobbler
	registry   *external.Registry
	resources  *external.ResourceIndex
	providers  []sonar.MetadataProvider
	search     sonar.SearchEngine

	indexes atomic.Pointer[MemoryIndexes]

	downloads *downloadController

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// New opens the catalog, runs migrations, assembles the subsystems and
// spawns the background tasks. Close releases everything.
func New(ctx context.Context, cfg Config) (*Context, error) {
	cfg.withDefaults()
	if cfg.BlobStore == nil {
		cfg.BlobStore = blob.NewMemory()
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	c := &Context{
		cfg:        cfg,
		db:         db,
		blobs:      cfg.BlobStore,
		extractors: cfg.Extractors,
		scrobblers: cfg.Scrobblers,
		registry:   external.NewRegistry(cfg.ExternalServices),
		providers:  cfg.MetadataProviders,
		search:     cfg.SearchEngine,
	}
	if c.search == nil {
		c.search = &builtinSearch{c: c}
	}
	if cfg.StorageDir != "" {
		idx, err := external.NewResourceIndex(cfg.StorageDir)
		if err != nil {
			db.Close()
			return nil, err
		}
		c.resources = idx
	}
	c.indexes.Store(emptyIndexes())

	workerCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.downloads = newDownloadController(c, workerCtx)
	if !cfg.DisableWorkers {
		c.startWorkers(workerCtx)
		c.downloads.resumePending()
	}
	return c, nil
}

// Close cancels the background tasks, waits for them, and closes the
// catalog.
func (c *Context) Close() error {
	c.cancel()
	c.workers.Wait()
	return c.db.Close()
}

// BlobStore exposes the byte store to facades streaming audio.
func (c *Context) BlobStore() blob.Store { return c.blobs }
