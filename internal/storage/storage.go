package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Open when no object exists at the key
var ErrObjectNotFound = errors.New("storage object not found")

// Storage keeps attachment bytes. Keys are slash-separated and grouped by owner,
// e.g. "shipment/<id>/<uuid>.pdf".
type Storage interface {
	Put(ctx context.Context, owner, filename, contentType string, data io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Mode
func New(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, logger)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// objectKey returns a fresh key under owner keeping the original extension
func objectKey(owner, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(strings.Trim(owner, "/"), uuid.NewString()+ext)
}

// validKey rejects keys that would escape the owner layout
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}
