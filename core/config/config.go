package config

import (
	"path/filepath"
	"strings"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Media      MediaConfig
	Cache      CacheConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	BaseUrl            string
	TrustedProxies     []string
	CorsAllowedOrigins []string
}

type PathsConfig struct {
	BaseDir   string
	TempItems string // scratch space for multipart uploads
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // file path for SQLite, DB name for Postgres
}

// StorageConfig configures the backing object store.
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicRead    bool
	PublicBaseURL string
}

// MediaConfig bounds the ingestion pipeline.
type MediaConfig struct {
	MaxDownloadSize       int64
	FetchTimeoutSeconds   int
	MaxImageDimension     int
	JpegQuality           int
	ConvertToJpeg         bool
	EncryptedHostSuffixes []string
	DedupTTLSeconds       int
}

type CacheConfig struct {
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration (set by LoadConfig).
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"*"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:   baseDir,
		TempItems: getEnv("PATH_TEMP_ITEMS", filepath.Join(baseDir, "tempitems")),
	}

	dbCfg := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "sqlite"),
		Name:     getEnv("DB_NAME", filepath.Join(baseDir, "mediahub.db")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
	}

	storageCfg := StorageConfig{
		Bucket:        getEnv("STORAGE_BUCKET", ""),
		Region:        getEnv("STORAGE_REGION", "auto"),
		Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
		AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
		PublicRead:    getEnvBool("STORAGE_PUBLIC_READ", true),
		PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", appCfg.BaseUrl+"/media"),
	}

	encryptedHosts := []string{".whatsapp.net"}
	if v := getEnv("MEDIA_ENCRYPTED_HOST_SUFFIXES", ""); v != "" {
		encryptedHosts = strings.Split(v, ",")
	}

	mediaCfg := MediaConfig{
		MaxDownloadSize:       getEnvInt64("MEDIA_MAX_DOWNLOAD_SIZE", 50000000),
		FetchTimeoutSeconds:   getEnvInt("MEDIA_FETCH_TIMEOUT_SECONDS", 30),
		MaxImageDimension:     getEnvInt("MEDIA_MAX_IMAGE_DIMENSION", 1920),
		JpegQuality:           getEnvInt("MEDIA_JPEG_QUALITY", 85),
		ConvertToJpeg:         getEnvBool("MEDIA_CONVERT_TO_JPEG", false),
		EncryptedHostSuffixes: encryptedHosts,
		DedupTTLSeconds:       getEnvInt("MEDIA_DEDUP_TTL_SECONDS", 300),
	}

	cacheCfg := CacheConfig{
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azmediahub:"),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Storage:  storageCfg,
		Media:    mediaCfg,
		Cache:    cacheCfg,
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("INGEST_WORKER_POOL_SIZE", 20),
			QueueSize: getEnvInt("INGEST_WORKER_QUEUE_SIZE", 1000),
		},
	}

	Global = cfg
	return cfg, nil
}
