package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage keeps comparison artifacts (screenshots and diff images).
type Storage interface {
	// Put stores data under key and returns a URL that Get accepts.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, url string) ([]byte, error)
}

const keyTimeLayout = "20060102150405"

// ObjectKey builds "<kind>/<first 16 hex digits of sha256(seed)>/<timestamp>-<8 random hex digits>.<ext>".
// Artifacts of the same subject share a directory and sort by capture time;
// the random part keeps captures within the same second apart.
func ObjectKey(kind string, seed string, ext string, t time.Time) string {
	sum := sha256.Sum256([]byte(seed))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s/%s-%s.%s", kind, hex.EncodeToString(sum[:])[:16], t.UTC().Format(keyTimeLayout), suffix, ext)
}

// Open returns the backend for location: a plain directory path,
// "file:///path" or "s3://bucket[/prefix]".
func Open(ctx context.Context, location string, endpoint string) (Storage, error) {
	if !strings.Contains(location, "://") {
		return NewFileStorage(ctx, FileConfig{Directory: location})
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid storage location %q: %w", location, err)
	}
	switch u.Scheme {
	case "file":
		return NewFileStorage(ctx, FileConfig{Directory: u.Path})
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:   u.Host,
			Prefix:   strings.Trim(u.Path, "/"),
			Endpoint: endpoint,
		})
	default:
		return nil, fmt.Errorf("unsupported storage scheme %q", u.Scheme)
	}
}
