package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psykeus/designloft/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType, gotUpsert string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key", testLogger())
	local := writeTempFile(t, "star.svg", []byte("<svg/>"))

	err := c.Upload(context.Background(), BucketDesigns, "files/dsn-abc/v1.svg", local)
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/designs/files/dsn-abc/v1.svg", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "image/svg+xml", gotContentType)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, []byte("<svg/>"), gotBody)
}

func TestUpload_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   errors.Code
	}{
		{"unauthorized", http.StatusUnauthorized, errors.CodeUnavailable},
		{"server error", http.StatusInternalServerError, errors.CodeUnavailable},
		{"bad request", http.StatusBadRequest, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := New(srv.URL, "key", testLogger())
			local := writeTempFile(t, "x.pdf", []byte("pdf"))

			err := c.Upload(context.Background(), BucketDesigns, "files/x.pdf", local)
			require.Error(t, err)

			var coded *errors.Error
			require.True(t, errors.As(err, &coded))
			assert.Equal(t, tt.code, coded.Code)
		})
	}
}

func TestUpload_MissingLocalFile(t *testing.T) {
	c := New("http://localhost:1", "key", testLogger())
	err := c.Upload(context.Background(), BucketDesigns, "x", filepath.Join(t.TempDir(), "nope.svg"))
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	c := New("https://store.example.com/", "key", testLogger())
	assert.Equal(t,
		"https://store.example.com/storage/v1/object/public/previews/star-12345678.png",
		c.PublicURL(BucketPreviews, "star-12345678.png"),
	)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/dxf", contentTypeFor("a/b/part.DXF"))
	assert.Equal(t, "image/png", contentTypeFor("preview.png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("design.cdr"))
}
