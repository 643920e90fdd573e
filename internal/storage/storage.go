package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aniladanir/file-relay-service/internal/cache"
	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/metrics"
)

// ErrFolderNotFound is returned by a Backend when a folder it was given no longer exists
var ErrFolderNotFound = errors.New("folder not found")

// Backend is a hierarchical file store addressed by opaque folder ids.
// An empty parent id means the backend's root.
type Backend interface {
	// FindFolder returns the id of a non-trashed folder named exactly name under parentID.
	// found is false when there is none.
	FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	Upload(ctx context.Context, file File) (*UploadedFile, error)
}

type File struct {
	Name     string
	FolderID string
	MimeType string
	Content  []byte
}

type UploadedFile struct {
	ID         string
	Name       string
	Size       int64
	SharedLink string
	FolderID   string
}

// Client resolves folder paths and uploads files through a Backend.
type Client struct {
	backend  Backend
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Client)

// WithFolderCache remembers resolved folder ids for ttl. Without it every call walks the full path.
func WithFolderCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		if c != nil && ttl > 0 {
			cl.cache = c
			cl.cacheTTL = ttl
		}
	}
}

func NewClient(backend Backend, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolvePath walks segments below rootID, creating missing folders, and returns the leaf folder id.
// Lookup and creation are two separate backend calls: concurrent first-time callers for the same
// path can each create a folder, leaving duplicate siblings.
func (c *Client) ResolvePath(ctx context.Context, rootID string, segments []string) (string, error) {
	if len(segments) == 0 {
		return rootID, nil
	}

	parentID := rootID
	currentPath := ""
	for _, name := range segments {
		currentPath = currentPath + "/" + name

		folderID, err := c.resolveFolder(ctx, name, parentID)
		if err != nil {
			return "", &domain.UploadError{Op: "resolve folder " + currentPath, Err: err}
		}
		parentID = folderID
	}

	return parentID, nil
}

func (c *Client) resolveFolder(ctx context.Context, name, parentID string) (string, error) {
	key := folderCacheKey(name, parentID)
	if c.cache != nil {
		id, err := c.cache.Get(ctx, key)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("folder cache read failed", "key", key, "error", err.Error())
		}
	}

	folderID, found, err := c.backend.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}

	if found {
		c.logger.Debug("folder found", "name", name, "parentId", parentID, "folderId", folderID)
	} else {
		folderID, err = c.backend.CreateFolder(ctx, name, parentID)
		if err != nil {
			return "", fmt.Errorf("create folder %q: %w", name, err)
		}
		metrics.DriveFoldersCreated.Inc()
		c.logger.Info("folder created", "name", name, "parentId", parentID, "folderId", folderID)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, folderID, c.cacheTTL); err != nil {
			c.logger.Warn("folder cache write failed", "key", key, "error", err.Error())
		}
	}

	return folderID, nil
}

// Upload stores file content byte-for-byte in the given folder
func (c *Client) Upload(ctx context.Context, file File) (*UploadedFile, error) {
	uploaded, err := c.backend.Upload(ctx, file)
	if err != nil {
		return nil, &domain.UploadError{Op: "upload " + file.Name, Err: err}
	}
	if uploaded.Size == 0 {
		uploaded.Size = int64(len(file.Content))
	}
	uploaded.FolderID = file.FolderID

	c.logger.Info("file uploaded", "name", uploaded.Name, "fileId", uploaded.ID, "size", uploaded.Size)
	return uploaded, nil
}

// ForgetPath evicts the cached folder ids along segments below rootID. The walk stops at the
// first segment that is not cached.
func (c *Client) ForgetPath(ctx context.Context, rootID string, segments []string) {
	if c.cache == nil {
		return
	}

	parentID := rootID
	for _, name := range segments {
		key := folderCacheKey(name, parentID)
		id, err := c.cache.Get(ctx, key)
		if err != nil {
			return
		}
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("folder cache delete failed", "key", key, "error", err.Error())
		}
		parentID = id
	}
}

func folderCacheKey(name, parentID string) string {
	if parentID == "" {
		parentID = "root"
	}
	return fmt.Sprintf("drive_folder:%s:%s", parentID, name)
}
