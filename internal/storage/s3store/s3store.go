// Package s3store is the S3-compatible Object Store backend, adapted from
// the teacher's read-only S3 driver into a read-write artifact store: an
// HTTP/2-pooled client, path-style addressing for MinIO-style endpoints,
// and standard bucket operations.
package s3store

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"golang.org/x/net/http2"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/logger"
)

type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	EndpointURL     string // non-empty selects a custom MinIO/S3-compatible endpoint; both modes use path-style addressing
	SubPath         string
	CDNBaseURL      string
	ConnectionPool  int
	KeepAlive       time.Duration
	EnableHTTP2     bool
}

type Store struct {
	client  *s3.Client
	bucket  string
	subPath string
	cdnBase string
}

func newHTTPClient(cfg Config) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:        cfg.ConnectionPool * 4,
		MaxIdleConnsPerHost: cfg.ConnectionPool,
		IdleConnTimeout:     cfg.KeepAlive,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if cfg.EnableHTTP2 {
		transport.ForceAttemptHTTP2 = true
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warnf("[S3Store] failed to configure HTTP/2: %v", err)
		}
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}

func New(cfg Config) (*Store, error) {
	httpClient := newHTTPClient(cfg)
	var client *s3.Client

	if cfg.EndpointURL != "" {
		logger.Infof("[S3Store] initializing S3-compatible backend: endpoint=%s bucket=%s", cfg.EndpointURL, cfg.Bucket)
		client = s3.New(s3.Options{
			Region:       cfg.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			BaseEndpoint: aws.String(cfg.EndpointURL),
			UsePathStyle: true,
			HTTPClient:   httpClient,
		})
	} else {
		logger.Infof("[S3Store] initializing AWS S3 backend: bucket=%s region=%s", cfg.Bucket, cfg.Region)
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithHTTPClient(httpClient),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, err
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		subPath: strings.Trim(cfg.SubPath, "/"),
		cdnBase: strings.TrimRight(cfg.CDNBaseURL, "/"),
	}, nil
}

func (s *Store) fullKey(key string) string {
	if s.subPath == "" {
		return key
	}
	return s.subPath + "/" + key
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.fullKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStoreTransport, "s3 put failed", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", apperr.New(apperr.KindNotFound, "artifact not found")
		}
		return nil, "", apperr.Wrap(apperr.KindStoreTransport, "s3 get failed", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindStoreTransport, "s3 read body failed", err)
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return data, contentType, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindStoreTransport, "s3 head failed", err)
}

func (s *Store) PublicURL(key string) string {
	full := s.fullKey(key)
	if s.cdnBase == "" {
		return "/" + full
	}
	return s.cdnBase + "/" + full
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
