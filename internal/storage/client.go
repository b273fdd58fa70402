// Package storage uploads files to the remote object store over its REST
// API and builds public URLs for them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psykeus/designloft/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Buckets used by the ingest pipeline.
const (
	BucketDesigns  = "designs"
	BucketPreviews = "previews"
)

var contentTypes = map[string]string{
	".svg":  "image/svg+xml",
	".dxf":  "application/dxf",
	".ai":   "application/postscript",
	".eps":  "application/postscript",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Client talks to the object store's HTTP API with service-key auth.
type Client struct {
	endpoint   string
	serviceKey string
	http       *http.Client
	logger     *slog.Logger
}

// New creates a new storage client. endpoint is the store's base URL without
// a trailing slash.
func New(endpoint, serviceKey string, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		serviceKey: serviceKey,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Upload sends the file at localPath to bucket/objectPath. Re-uploading an
// existing object overwrites it.
func (c *Client) Upload(ctx context.Context, bucket, objectPath, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "open upload source")
	}
	defer f.Close()

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.endpoint, bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create request")
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentTypeFor(localPath))
	req.Header.Set("x-upsert", "true")

	c.logger.Debug("storage upload",
		"bucket", bucket,
		"object", objectPath,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "execute upload")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return errors.Unavailable(fmt.Sprintf("upload rejected: status %d", resp.StatusCode))
		case resp.StatusCode >= 500:
			return errors.Unavailable(fmt.Sprintf("store error: status %d", resp.StatusCode))
		default:
			return errors.Internal(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
	}
	return nil
}

// PublicURL returns the unauthenticated URL of an object in a public bucket.
func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.endpoint, bucket, objectPath)
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
