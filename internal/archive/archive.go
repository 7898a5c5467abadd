// Package archive keeps a copy of every uploaded statement so an import can
// be replayed or audited later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"pennywise/internal/uuid"
)

// Archiver stores raw statement bytes.
type Archiver interface {
	// Archive stores data and returns a URI it can be fetched back from.
	Archive(ctx context.Context, userID, filename string, data []byte) (string, error)
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Nop is used when no bucket is configured. It stores nothing.
type Nop struct{}

// Archive returns an empty URI.
func (Nop) Archive(context.Context, string, string, []byte) (string, error) { return "", nil }

// Fetch always fails; nothing was stored.
func (Nop) Fetch(_ context.Context, uri string) ([]byte, error) {
	return nil, fmt.Errorf("archive disabled, cannot fetch %q", uri)
}

// GCS stores statements in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCS struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewGCS opens a storage client for bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, timeout: 2 * time.Minute}, nil
}

// New returns a GCS archiver for bucket, or Nop when bucket is empty.
func New(ctx context.Context, bucket string) (Archiver, error) {
	if bucket == "" {
		return Nop{}, nil
	}
	return NewGCS(ctx, bucket)
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Archive uploads data under statements/<user>/<date>/<id>-<filename>.
func (g *GCS) Archive(ctx context.Context, userID, filename string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name := ObjectName(userID, filename, time.Now())
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.Metadata = map[string]string{"user_id": userID, "original_name": filename}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy statement to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return "gs://" + g.bucket + "/" + name, nil
}

// Fetch downloads an archived statement by its gs:// URI.
func (g *GCS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// ObjectName builds the object path for an upload.
func ObjectName(userID, filename string, at time.Time) string {
	base := sanitize(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if base == "" || base == "." || base == "/" {
		base = "statement.csv"
	}
	return path.Join("statements", sanitize(userID), at.UTC().Format("2006/01/02"), uuid.New()+"-"+base)
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, s)
}
