// Package localstore is the local-filesystem Object Store backend: a flat
// directory under a configured root, atomic writes via write-to-temp-then-
// rename, content-type deduced from the key's extension.
package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/fingerprint"
	"github.com/kesler-oduya/imagefp/internal/logger"
)

type Store struct {
	basePath string
	cdnBase  string
}

func New(basePath, cdnBase string) (*Store, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(absBasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	logger.Infof("[LocalStore] initialized at %s", absBasePath)
	return &Store{basePath: absBasePath, cdnBase: strings.TrimRight(cdnBase, "/")}, nil
}

// resolve validates key is a flat filename with no traversal and returns its
// absolute path under basePath.
func (s *Store) resolve(key string) (string, error) {
	cleanKey := filepath.Clean(key)
	if filepath.IsAbs(cleanKey) || strings.Contains(cleanKey, "..") || strings.ContainsRune(cleanKey, filepath.Separator) {
		return "", apperr.New(apperr.KindInvalidRequest, "invalid artifact key")
	}
	return filepath.Join(s.basePath, cleanKey), nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return apperr.Wrap(apperr.KindStoreTransport, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.KindStoreTransport, "failed to write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.KindStoreTransport, "failed to close temp file", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.KindStoreTransport, "failed to publish artifact", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", apperr.New(apperr.KindNotFound, "artifact not found")
		}
		return nil, "", apperr.Wrap(apperr.KindStoreTransport, "failed to read artifact", err)
	}
	return data, fingerprint.ContentTypeForExtension(filepath.Ext(key)), nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindStoreTransport, "failed to stat artifact", err)
}

func (s *Store) PublicURL(key string) string {
	if s.cdnBase == "" {
		return "/" + key
	}
	return s.cdnBase + "/" + key
}
