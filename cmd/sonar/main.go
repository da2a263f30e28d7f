package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sonarhq/sonar/internal/api"
	"github.com/sonarhq/sonar/internal/discovery"
	"github.com/sonarhq/sonar/pkg/blob"
	"github.com/sonarhq/sonar/pkg/config"
	"github.com/sonarhq/sonar/pkg/extractor"
	"github.com/sonarhq/sonar/pkg/external"
	"github.com/sonarhq/sonar/pkg/library"
	"github.com/sonarhq/sonar/pkg/musicbrainz"
	"github.com/sonarhq/sonar/pkg/scrobbler"
	"github.com/sonarhq/sonar/pkg/sonar"
)

var (
	flagDB         string
	flagBlobRoot   string
	flagBackend    string
	flagBucket     string
	flagS3Endpoint string
	flagS3Key      string
	flagS3Secret   string
	flagStorageDir string
	flagPort       int
	flagMDNS       bool
	flagEnrich     bool
	flagGCInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sonar",
	Short: "Personal music-library server",
	RunE:  run,
}

func init() {
	// .env is optional; real env always wins.
	_ = godotenv.Load()

	rootCmd.Flags().StringVar(&flagDB, "db", config.Env("SONAR_DB", "./data/sonar.db"), "Catalog database file or :memory:")
	rootCmd.Flags().StringVar(&flagBackend, "blob-backend", config.Env("SONAR_BLOB_BACKEND", "local"), "Blob backend: local | memory | s3")
	rootCmd.Flags().StringVar(&flagBlobRoot, "blob-root", config.Env("SONAR_BLOB_ROOT", "./data/blobs"), "Root directory for the local blob backend")
	rootCmd.Flags().StringVar(&flagBucket, "s3-bucket", config.Env("SONAR_S3_BUCKET", "sonar-blobs"), "S3 bucket name")
	rootCmd.Flags().StringVar(&flagS3Endpoint, "s3-endpoint", config.Env("SONAR_S3_ENDPOINT", "localhost:9000"), "S3 endpoint")
	rootCmd.Flags().StringVar(&flagS3Key, "s3-access-key", config.Env("SONAR_S3_ACCESS_KEY", "sonar"), "S3 access key")
	rootCmd.Flags().StringVar(&flagS3Secret, "s3-secret-key", config.Env("SONAR_S3_SECRET_KEY", "sonarsecret"), "S3 secret key")
	rootCmd.Flags().StringVar(&flagStorageDir, "storage-dir", config.Env("SONAR_STORAGE_DIR", "./data"), "Directory for the external resource index")
	rootCmd.Flags().IntVar(&flagPort, "port", config.EnvInt("SONAR_PORT", 3000), "HTTP listen port")
	rootCmd.Flags().BoolVar(&flagMDNS, "mdns", config.EnvBool("SONAR_MDNS", true), "Advertise the server via mDNS")
	rootCmd.Flags().BoolVar(&flagEnrich, "enrich", config.EnvBool("SONAR_MUSICBRAINZ", true), "Register the MusicBrainz metadata provider")
	rootCmd.Flags().DurationVar(&flagGCInterval, "gc-interval", config.EnvDuration("SONAR_GC_INTERVAL", 6*time.Hour), "Garbage collection cadence (0 disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := openBlobStore(ctx)
	if err != nil {
		return err
	}
	slog.Info("blob store ready", "backend", flagBackend)

	var scrobblers []sonar.Scrobbler
	if token := os.Getenv("SONAR_LISTENBRAINZ_TOKEN"); token != "" {
		username := sonar.Username(os.Getenv("SONAR_LISTENBRAINZ_USER"))
		scrobblers = append(scrobblers, scrobbler.NewListenBrainz(username, token))
		slog.Info("listenbrainz scrobbler registered", "username", username)
	}

	var providers []sonar.MetadataProvider
	if flagEnrich {
		providers = append(providers, musicbrainz.NewProvider())
	}

	lib, err := library.New(ctx, library.Config{
		DatabasePath: flagDB,
		BlobStore:    blobs,
		StorageDir:   flagStorageDir,
		Extractors: []extractor.Named{
			{Name: "tag", Extractor: extractor.NewTagExtractor()},
		},
		Scrobblers: scrobblers,
		ExternalServices: []sonar.ExternalService{
			external.Limit(external.NewRSSService(10), 1),
		},
		MetadataProviders: providers,
		GCInterval:        flagGCInterval,
	})
	if err != nil {
		return fmt.Errorf("assemble library: %w", err)
	}
	defer lib.Close()
	slog.Info("catalog ready", "db", flagDB)

	if flagMDNS {
		mdnsServer, err := discovery.Start(flagPort, "")
		if err != nil {
			slog.Warn("mdns unavailable", "err", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(flagPort),
		Handler:     api.New(lib).Router(),
		ReadTimeout: 15 * time.Second,
		// Streaming responses must not hit a write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	slog.Info("listening", "port", flagPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func openBlobStore(ctx context.Context) (blob.Store, error) {
	switch flagBackend {
	case "memory":
		return blob.NewMemory(), nil
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Endpoint:  flagS3Endpoint,
			AccessKey: flagS3Key,
			SecretKey: flagS3Secret,
			Bucket:    flagBucket,
		})
	case "local":
		return blob.NewFilesystem(flagBlobRoot)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", flagBackend)
	}
}
