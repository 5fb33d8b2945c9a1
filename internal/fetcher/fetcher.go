// Package fetcher implements the bounded-concurrency remote source fetcher
// (C2): a shared, pooled HTTP(S) client gated by a process-wide semaphore,
// streaming reads under a hard size cap.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/logger"
)

// Config mirrors the C2 knobs from the performance profile table.
type Config struct {
	MaxConcurrentDownloads int
	HTTPTimeout            time.Duration
	MaxImageSize           int64
	EnableHTTP2            bool
	ConnectionPoolSize     int
	KeepAliveTimeout       time.Duration
}

// Fetcher is the shared, thread-safe source fetcher. Construct one per
// process; it owns the download semaphore and the pooled HTTP client.
type Fetcher struct {
	client       *http.Client
	sem          chan struct{}
	maxImageSize int64
}

func New(cfg Config) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: cfg.KeepAliveTimeout,
		}).DialContext,
		MaxIdleConns:          cfg.ConnectionPoolSize * 4,
		MaxIdleConnsPerHost:   cfg.ConnectionPoolSize,
		IdleConnTimeout:       cfg.KeepAliveTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.HTTPTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if cfg.EnableHTTP2 {
		transport.ForceAttemptHTTP2 = true
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warnf("[Fetcher] failed to configure HTTP/2: %v", err)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.HTTPTimeout,
	}

	logger.Infof("[Fetcher] configured: maxConcurrentDownloads=%d, connPoolSize=%d, http2=%v, timeout=%s",
		cfg.MaxConcurrentDownloads, cfg.ConnectionPoolSize, cfg.EnableHTTP2, cfg.HTTPTimeout)

	return &Fetcher{
		client:       client,
		sem:          make(chan struct{}, cfg.MaxConcurrentDownloads),
		maxImageSize: cfg.MaxImageSize,
	}
}

// Fetch retrieves the bytes at rawURL, enforcing the configured size cap.
// It returns the response body bytes and the upstream Content-Type header
// (advisory only; the codec performs its own magic-byte detection).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", apperr.New(apperr.KindInvalidRequest, "source url must use http or https")
	}

	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
	defer func() { <-f.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", apperr.New(apperr.KindInvalidRequest, fmt.Sprintf("bad source url: %v", err))
	}
	// Accept-Encoding is deliberately left unset: Transport auto-negotiates
	// gzip and transparently decompresses the body when it does, which is
	// how gzip support is plumbed in (setting this header ourselves would
	// disable that and hand raw gzip bytes to the codec).

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", apperr.Wrap(apperr.KindSourceTimeout, "fetch cancelled or deadline exceeded", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, "", apperr.Wrap(apperr.KindSourceTimeout, "fetch timed out", err)
		}
		return nil, "", apperr.Wrap(apperr.KindSourceTransport, "fetch transport error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", apperr.SourceUnavailable(resp.StatusCode)
	}

	if resp.ContentLength > 0 && resp.ContentLength > f.maxImageSize {
		return nil, "", apperr.New(apperr.KindSourceTooLarge, "declared content-length exceeds max_image_size")
	}

	limited := io.LimitReader(resp.Body, f.maxImageSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindSourceTransport, "error reading source body", err)
	}
	if int64(len(data)) > f.maxImageSize {
		return nil, "", apperr.New(apperr.KindSourceTooLarge, "streamed bytes exceed max_image_size")
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	return data, contentType, nil
}
