package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sonarhq/sonar/pkg/blob"
	"github.com/sonarhq/sonar/pkg/config"
	"github.com/sonarhq/sonar/pkg/extractor"
	"github.com/sonarhq/sonar/pkg/library"
)

var errSkipped = errors.New("skipped")

var (
	flagDir       string
	flagDB        string
	flagBlobRoot  string
	flagRecursive bool
	flagDryRun    bool
	flagWatch     bool
	flagWorkers   int
)

var rootCmd = &cobra.Command{
	Use:   "sonar-ingest",
	Short: "Import a music directory into the sonar catalog",
	RunE:  run,
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVar(&flagDir, "dir", config.Env("SONAR_INGEST_DIR", "/music"), "Music directory to scan")
	rootCmd.Flags().StringVar(&flagDB, "db", config.Env("SONAR_DB", "./data/sonar.db"), "Catalog database file")
	rootCmd.Flags().StringVar(&flagBlobRoot, "blob-root", config.Env("SONAR_BLOB_ROOT", "./data/blobs"), "Blob root directory")
	rootCmd.Flags().BoolVar(&flagRecursive, "recursive", true, "Scan subdirectories recursively")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print what would be done without modifying anything")
	rootCmd.Flags().BoolVar(&flagWatch, "watch", false, "Watch the directory and ingest new files continuously")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "Number of parallel ingest workers")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ingester holds shared state across the initial scan and the
// optional watcher.
type ingester struct {
	lib    *library.Context
	dryRun bool

	// seen guards against re-processing a path within one run; cross-
	// run idempotence comes from content-hash blob keys and
	// find-or-create semantics in the import pipeline.
	seenMu sync.Mutex
	seen   map[string]struct{}
}

func (g *ingester) process(ctx context.Context, path string) error {
	g.seenMu.Lock()
	if _, done := g.seen[path]; done {
		g.seenMu.Unlock()
		return errSkipped
	}
	g.seen[path] = struct{}{}
	g.seenMu.Unlock()

	if g.dryRun {
		slog.Info("would ingest", "path", path)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	track, err := g.lib.ImportTrack(ctx, library.Import{
		Filepath: path,
		Stream:   f,
	})
	if err != nil {
		return err
	}
	slog.Info("ingested", "path", path, "track", track.ID)
	return nil
}

// scan walks flagDir, fanning paths out to a bounded worker pool.
func (g *ingester) scan(ctx context.Context) (ingested, skipped, errs int) {
	var paths []string
	if err := filepath.WalkDir(flagDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("walk error", "path", path, "err", walkErr)
			return nil
		}
		if d.IsDir() {
			if !flagRecursive && path != flagDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isAudioFile(path) {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		slog.Warn("walk error", "dir", flagDir, "err", err)
	}

	var nIngested, nSkipped, nErrs int64
	workers := flagWorkers
	if workers < 1 {
		workers = 1
	}
	pathCh := make(chan string, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pathCh {
				switch err := g.process(ctx, p); {
				case errors.Is(err, errSkipped):
					atomic.AddInt64(&nSkipped, 1)
				case err != nil:
					slog.Error("ingest failed", "path", p, "err", err)
					atomic.AddInt64(&nErrs, 1)
				default:
					atomic.AddInt64(&nIngested, 1)
				}
			}
		}()
	}
	for _, p := range paths {
		pathCh <- p
	}
	close(pathCh)
	wg.Wait()

	return int(nIngested), int(nSkipped), int(nErrs)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	blobs, err := blob.NewFilesystem(flagBlobRoot)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}
	lib, err := library.New(ctx, library.Config{
		DatabasePath: flagDB,
		BlobStore:    blobs,
		Extractors: []extractor.Named{
			{Name: "tag", Extractor: extractor.NewTagExtractor()},
		},
		// One-shot tool; the server owns the background loops.
		DisableWorkers: true,
	})
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	if flagDir == "" {
		return fmt.Errorf("--dir is required")
	}

	g := &ingester{
		lib:    lib,
		dryRun: flagDryRun,
		seen:   make(map[string]struct{}),
	}

	ingested, skipped, errs := g.scan(ctx)
	slog.Info("scan complete", "ingested", ingested, "skipped", skipped, "errors", errs)
	if !flagWatch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	_ = filepath.WalkDir(flagDir, func(path string, d os.DirEntry, e error) error {
		if e == nil && d.IsDir() {
			_ = watcher.Add(path)
		}
		return nil
	})
	slog.Info("watching", "dir", flagDir)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			fi, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if fi.IsDir() {
				_ = watcher.Add(ev.Name)
				continue
			}
			if !isAudioFile(ev.Name) {
				continue
			}
			go func(p string) {
				if err := g.process(ctx, p); err != nil && !errors.Is(err, errSkipped) {
					slog.Error("ingest failed", "path", p, "err", err)
				}
			}(ev.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "err", err)

		case <-time.After(10 * time.Second):
			// keep alive
		}
	}
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac", ".wav", ".mp3", ".ogg", ".m4a", ".aiff", ".aif":
		return true
	}
	return false
}
