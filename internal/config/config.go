package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds every knob named in the environment surface: performance
// profile and its per-knob overrides, storage backend selection, and bind
// address.
type Config struct {
	Host string
	Port string

	PerformanceProfile string

	MaxConcurrentDownloads  int
	MaxConcurrentProcessing int
	HTTPTimeout             time.Duration
	MaxImageSize            int64 // bytes
	CPUThreadPoolSize       int
	EnableHTTP2             bool
	ConnectionPoolSize      int
	KeepAliveTimeout        time.Duration

	StorageType        string // MINIO | S3 | LOCAL_FS | IN_MEMORY
	MinioEndpointURL   string
	AccessKeyID        string
	SecretAccessKey    string
	Bucket             string
	Region             string
	StorageSubPath     string
	LocalFSStoragePath string
	CDNBaseURL         string
}

// profile is a performance preset before per-knob overrides are applied.
type profile struct {
	downloads  int
	processing int
	timeoutSec int
	sizeMB     int
	pool       int
	http2      bool
	conn       int
	keepSec    int
}

func profileFor(name string, cpus int) profile {
	half := cpus / 2
	if half < 1 {
		half = 1
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "high_throughput":
		return profile{downloads: 50, processing: cpus * 2, timeoutSec: 15, sizeMB: 100, pool: cpus, http2: true, conn: 100, keepSec: 120}
	case "low_latency":
		return profile{downloads: 10, processing: cpus, timeoutSec: 10, sizeMB: 20, pool: cpus, http2: true, conn: 25, keepSec: 30}
	case "memory_efficient":
		return profile{downloads: 5, processing: half, timeoutSec: 45, sizeMB: 10, pool: half, http2: false, conn: 10, keepSec: 30}
	default:
		return profile{downloads: 20, processing: cpus, timeoutSec: 30, sizeMB: 50, pool: cpus, http2: true, conn: 50, keepSec: 60}
	}
}

// Load builds a Config from the selected PERFORMANCE_PROFILE preset, then
// applies any individually-set override variables on top of it.
func Load() *Config {
	cpus := runtime.NumCPU()
	profileName := getEnv("PERFORMANCE_PROFILE", "default")
	p := profileFor(profileName, cpus)

	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "8080"),

		PerformanceProfile: profileName,

		MaxConcurrentDownloads:  getEnvInt("MAX_CONCURRENT_DOWNLOADS", p.downloads),
		MaxConcurrentProcessing: getEnvInt("MAX_CONCURRENT_PROCESSING", p.processing),
		HTTPTimeout:             getEnvDurationSeconds("HTTP_TIMEOUT_SECS", p.timeoutSec),
		MaxImageSize:            int64(getEnvInt("MAX_IMAGE_SIZE_MB", p.sizeMB)) * 1024 * 1024,
		CPUThreadPoolSize:       getEnvInt("CPU_THREAD_POOL_SIZE", p.pool),
		EnableHTTP2:             getEnvBool("ENABLE_HTTP2", p.http2),
		ConnectionPoolSize:      getEnvInt("CONNECTION_POOL_SIZE", p.conn),
		KeepAliveTimeout:        getEnvDurationSeconds("KEEP_ALIVE_TIMEOUT_SECS", p.keepSec),

		StorageType:        strings.ToUpper(getEnv("STORAGE_TYPE", "LOCAL_FS")),
		MinioEndpointURL:   getEnv("MINIO_ENDPOINT_URL", ""),
		AccessKeyID:        getEnv("ACCESS_KEY_ID", ""),
		SecretAccessKey:    getEnv("SECRET_ACCESS_KEY", ""),
		Bucket:             getEnv("BUCKET", ""),
		Region:             getEnv("REGION", "us-east-1"),
		StorageSubPath:     getEnv("STORAGE_SUB_PATH", ""),
		LocalFSStoragePath: getEnv("LOCAL_FS_STORAGE_PATH", "./data/artifacts"),
		CDNBaseURL:         getEnv("CDN_BASE_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDurationSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
