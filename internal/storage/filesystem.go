// Package storage persists generated media onto the local filesystem and
// hands callers relative keys that can be served from a public static root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDFunc produces the random suffix used in artifact filenames. It is
// injectable so tests can pin deterministic names.
type IDFunc func() string

// DefaultID returns a short random suffix derived from a UUID.
func DefaultID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// FileStore persists artifacts under a single base directory. Writers never
// expose in-progress files: payloads land in a hidden temp file first and are
// renamed into place, so a key either does not exist or holds complete bytes.
type FileStore struct {
	basePath string
	newID    IDFunc
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithIDFunc overrides the artifact suffix generator.
func WithIDFunc(fn IDFunc) Option {
	return func(s *FileStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string, opts ...Option) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	store := &FileStore{basePath: basePath, newID: DefaultID}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// ArtifactKey builds the canonical artifact filename for a provider tag:
// {provider-tag}_{timestamp}_{random-suffix}.mp4 under the videos/ prefix.
func (s *FileStore) ArtifactKey(providerTag string, now time.Time) string {
	tag := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(providerTag))
	if tag == "" {
		tag = "video"
	}
	return fmt.Sprintf("videos/%s_%s_%s.mp4", tag, now.UTC().Format("20060102T150405"), s.newID())
}

// Publish writes data at the given relative key using write-then-rename
// semantics and returns the canonicalized key. Concurrent publishes of
// distinct keys never observe each other's partial writes.
func (s *FileStore) Publish(ctx context.Context, key string, data []byte) (string, error) {
	return s.publish(ctx, key, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// PublishStream is Publish for streamed payloads such as vendor downloads.
func (s *FileStore) PublishStream(ctx context.Context, key string, r io.Reader) (string, error) {
	return s.publish(ctx, key, func(f *os.File) error {
		_, err := io.Copy(f, r)
		return err
	})
}

func (s *FileStore) publish(ctx context.Context, key string, write func(*os.File) error) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("storage: write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("storage: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("storage: publish file: %w", err)
	}
	return cleanKey, nil
}

// Size reports the byte size of a published key.
func (s *FileStore) Size(key string) (int64, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return 0, fmt.Errorf("storage: stat: %w", err)
	}
	return info.Size(), nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
