// Package storage holds attachment blobs on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("storage object not found")

// Object describes a blob being written.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the blob surface used by the attachments service.
type Store interface {
	Put(ctx context.Context, obj Object) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	SignedReadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Ping(ctx context.Context) error
}

// New returns the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverLocal:
		return NewLocal(cfg.LocalDir, logg)
	case DriverS3:
		return NewS3(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectKey builds the storage key for an attachment owned by an entity.
func ObjectKey(ownerKind, ownerID, attachmentID, fileName string) string {
	name := sanitizeName(fileName)
	return path.Join("attachments", ownerKind, ownerID, attachmentID+"-"+name)
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func validKey(key string) error {
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("storage key is required")
	}
	if strings.HasPrefix(k, "/") || strings.Contains(k, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
