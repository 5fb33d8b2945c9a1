// Package pipeline implements the orchestrator (C6) binding fingerprint,
// fetcher, codec, object store, and result cache into the two public
// operations: Resize and Download.
package pipeline

import (
	"context"

	"github.com/kesler-oduya/imagefp/internal/codec"
	"github.com/kesler-oduya/imagefp/internal/fetcher"
	"github.com/kesler-oduya/imagefp/internal/fingerprint"
	"github.com/kesler-oduya/imagefp/internal/logger"
	"github.com/kesler-oduya/imagefp/internal/resultcache"
	"github.com/kesler-oduya/imagefp/internal/storage"
)

type transcodeResult struct {
	data        []byte
	contentType string
}

// Pipeline is the per-process orchestrator. One Pipeline is constructed at
// startup and shared across all requests.
type Pipeline struct {
	fetcher *fetcher.Fetcher
	cpu     *CPUPool
	store   storage.Store
	cache   *resultcache.Cache
	procSem chan struct{}
}

func New(f *fetcher.Fetcher, cpu *CPUPool, store storage.Store, cache *resultcache.Cache, maxConcurrentProcessing int) *Pipeline {
	if maxConcurrentProcessing < 1 {
		maxConcurrentProcessing = 1
	}
	return &Pipeline{
		fetcher: f,
		cpu:     cpu,
		store:   store,
		cache:   cache,
		procSem: make(chan struct{}, maxConcurrentProcessing),
	}
}

// Resize runs resolve(request): NEW -> FETCHING -> DECODING -> RESIZING ->
// ENCODING -> STORING -> PUBLISHED, collapsing to a cached hit whenever the
// result cache already has (or discovers) an entry for this fingerprint.
func (p *Pipeline) Resize(ctx context.Context, req fingerprint.Request) (resultcache.CacheEntry, error) {
	log := logger.With(logger.Fields{"fingerprint": req.Fingerprint(), "key": req.ArtifactKey()})

	return p.cache.Resolve(ctx, req, func(ctx context.Context) ([]byte, string, error) {
		log.Debugf("[Pipeline] stage=FETCHING url=%s", req.SourceURL)
		data, _, err := p.fetcher.Fetch(ctx, req.SourceURL)
		if err != nil {
			log.Warnf("[Pipeline] stage=FETCHING failed: %v", err)
			return nil, "", err
		}

		select {
		case p.procSem <- struct{}{}:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
		defer func() { <-p.procSem }()

		log.Debugf("[Pipeline] stage=DECODING/RESIZING/ENCODING")
		v, err := p.cpu.Run(ctx, func() (any, error) {
			out, contentType, err := codec.Transcode(data, codec.Params{
				Width:     req.Width,
				Height:    req.Height,
				Format:    req.Format,
				BlurSigma: req.BlurSigma,
				Grayscale: req.Grayscale,
			})
			if err != nil {
				return nil, err
			}
			return transcodeResult{data: out, contentType: contentType}, nil
		})
		if err != nil {
			log.Warnf("[Pipeline] stage=ENCODING failed: %v", err)
			return nil, "", err
		}

		result := v.(transcodeResult)
		log.Debugf("[Pipeline] stage=STORING size=%d", len(result.data))
		return result.data, result.contentType, nil
	})
}

// Download implements download(key): a direct get from the object store,
// NOT_FOUND surfaced as-is on absence.
func (p *Pipeline) Download(ctx context.Context, key string) ([]byte, string, error) {
	data, contentType, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = fingerprint.ContentTypeForExtension(keyExtension(key))
	}
	return data, contentType, nil
}

func keyExtension(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return ""
}
