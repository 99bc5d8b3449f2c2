package cmd

import (
	"context"
	"os"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/AzielCF/az-mediahub/core/config"
	"github.com/AzielCF/az-mediahub/core/database"
	domainCache "github.com/AzielCF/az-mediahub/domains/cache"
	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
	"github.com/AzielCF/az-mediahub/infrastructure/fetch"
	"github.com/AzielCF/az-mediahub/infrastructure/mediacache"
	"github.com/AzielCF/az-mediahub/infrastructure/mediastorage"
	"github.com/AzielCF/az-mediahub/infrastructure/objectstore"
	"github.com/AzielCF/az-mediahub/infrastructure/valkey"
	"github.com/AzielCF/az-mediahub/pkg/ingestworker"
	"github.com/AzielCF/az-mediahub/pkg/utils"
	"github.com/AzielCF/az-mediahub/usecase"
)

var (
	appDB       *gorm.DB
	objectStore domainStorage.ObjectStore
	dedupStore  domainCache.IDedupStore
	valkeyCli   *valkey.Client
	workerPool  *ingestworker.Pool

	mediaUsecase domainMedia.IMediaUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-mediahub",
	Short: "Media ingestion and re-hosting service",
	Long: `az-mediahub downloads (and, for encrypted transports, decrypts)
message attachments, verifies the payload against its declared type,
optimizes static raster images and re-hosts everything under stable
public URLs served by the built-in proxy.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initApp)
}

var (
	flagPort  string
	flagDebug bool
)

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
}

func initApp() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[APP] Failed to load configuration: %v", err)
	}
	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug || viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.BaseDir, cfg.Paths.TempItems); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	appDB, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[APP] Failed to connect database: %v", err)
	}

	recordRepo := mediastorage.NewRecordGormRepository(appDB)
	if err := recordRepo.InitSchema(ctx); err != nil {
		logrus.Fatalf("[APP] Failed to migrate ingestion records: %v", err)
	}

	objectStore = initObjectStore(ctx, cfg)
	dedupStore = initDedupStore(cfg)

	fetcher := fetch.NewFetcher(fetch.Config{
		Timeout:               time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second,
		MaxBytes:              cfg.Media.MaxDownloadSize,
		EncryptedHostSuffixes: cfg.Media.EncryptedHostSuffixes,
	})

	workerPool = ingestworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	workerPool.Start(ctx)

	mediaUsecase = usecase.NewMediaUsecase(fetcher, objectStore, recordRepo, dedupStore, workerPool, usecase.MediaOptions{
		MaxImageDimension: cfg.Media.MaxImageDimension,
		JpegQuality:       cfg.Media.JpegQuality,
		ConvertToJpeg:     cfg.Media.ConvertToJpeg,
		DedupTTL:          time.Duration(cfg.Media.DedupTTLSeconds) * time.Second,
	})
}

// initObjectStore selects the configured S3-compatible bucket or, when no
// bucket is configured, an in-memory store for local development.
func initObjectStore(ctx context.Context, cfg *config.Config) domainStorage.ObjectStore {
	if cfg.Storage.Bucket == "" {
		logrus.Warn("[APP] STORAGE_BUCKET not set, using in-memory object store (objects are lost on restart)")
		return objectstore.NewMemoryStore(cfg.Storage.PublicBaseURL)
	}

	store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		PublicRead:    cfg.Storage.PublicRead,
	})
	if err != nil {
		logrus.Fatalf("[APP] Failed to initialize object store: %v", err)
	}
	logrus.Infof("[APP] Object store ready (bucket %s)", cfg.Storage.Bucket)
	return store
}

func initDedupStore(cfg *config.Config) domainCache.IDedupStore {
	if !cfg.Cache.ValkeyEnabled {
		return mediacache.NewMemoryDedupStore()
	}

	client, err := valkey.NewClient(valkey.Config{
		Address:   cfg.Cache.ValkeyAddress,
		Password:  cfg.Cache.ValkeyPassword,
		DB:        cfg.Cache.ValkeyDB,
		KeyPrefix: cfg.Cache.ValkeyKeyPrefix,
	})
	if err != nil {
		logrus.Warnf("[APP] Valkey unavailable, falling back to in-memory dedup cache: %v", err)
		return mediacache.NewMemoryDedupStore()
	}
	valkeyCli = client
	logrus.Infof("[APP] Valkey dedup cache ready (%s)", cfg.Cache.ValkeyAddress)
	return mediacache.NewValkeyDedupStore(client)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the worker pool and external connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if workerPool != nil {
		workerPool.Stop()
	}
	if valkeyCli != nil {
		valkeyCli.Close()
	}
	if appDB != nil {
		if sqlDB, err := appDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
