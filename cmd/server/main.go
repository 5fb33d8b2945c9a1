package main

import (
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/kesler-oduya/imagefp/internal/config"
	"github.com/kesler-oduya/imagefp/internal/fetcher"
	"github.com/kesler-oduya/imagefp/internal/httpapi"
	"github.com/kesler-oduya/imagefp/internal/logger"
	"github.com/kesler-oduya/imagefp/internal/pipeline"
	"github.com/kesler-oduya/imagefp/internal/resultcache"
	"github.com/kesler-oduya/imagefp/internal/storage"
	"github.com/kesler-oduya/imagefp/internal/storage/localstore"
	"github.com/kesler-oduya/imagefp/internal/storage/memstore"
	"github.com/kesler-oduya/imagefp/internal/storage/s3store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("[Server] no .env file loaded: %v", err)
	}
	logger.InitFromEnv()

	cfg := config.Load()

	logger.Infof("[Server] performance profile=%s downloads=%d processing=%d cpuPool=%d http2=%v storage=%s",
		cfg.PerformanceProfile, cfg.MaxConcurrentDownloads, cfg.MaxConcurrentProcessing,
		cfg.CPUThreadPoolSize, cfg.EnableHTTP2, cfg.StorageType)

	store, err := buildStore(cfg)
	if err != nil {
		logger.Fatalf("[Server] failed to initialize storage backend: %v", err)
	}

	f := fetcher.New(fetcher.Config{
		MaxConcurrentDownloads: cfg.MaxConcurrentDownloads,
		HTTPTimeout:            cfg.HTTPTimeout,
		MaxImageSize:           cfg.MaxImageSize,
		EnableHTTP2:            cfg.EnableHTTP2,
		ConnectionPoolSize:     cfg.ConnectionPoolSize,
		KeepAliveTimeout:       cfg.KeepAliveTimeout,
	})

	cpu := pipeline.NewCPUPool(cfg.CPUThreadPoolSize)

	cache, err := resultcache.New(store, 100_000)
	if err != nil {
		logger.Fatalf("[Server] failed to initialize result cache: %v", err)
	}

	pipe := pipeline.New(f, cpu, store, cache, cfg.MaxConcurrentProcessing)

	server := httpapi.NewServer(pipe)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	logger.Infof("[Server] listening on %s", addr)
	if err := http.ListenAndServe(addr, server.Routes()); err != nil {
		logger.Fatalf("[Server] server exited: %v", err)
	}
}

func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageType {
	case "S3", "MINIO":
		return s3store.New(s3store.Config{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Bucket:          cfg.Bucket,
			EndpointURL:     cfg.MinioEndpointURL,
			SubPath:         cfg.StorageSubPath,
			CDNBaseURL:      cfg.CDNBaseURL,
			ConnectionPool:  cfg.ConnectionPoolSize,
			KeepAlive:       cfg.KeepAliveTimeout,
			EnableHTTP2:     cfg.EnableHTTP2,
		})
	case "IN_MEMORY":
		return memstore.New(), nil
	default: // LOCAL_FS
		return localstore.New(cfg.LocalFSStoragePath, cfg.CDNBaseURL)
	}
}
