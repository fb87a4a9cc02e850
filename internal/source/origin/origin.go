// Package origin locates the raw bytes a file-shaped source reads: a local
// path, a URL served through viant/afs, or an S3 object.
package origin

//go:generate mockgen -source=origin.go -destination=mocks/mocks.go -package=mocks Opener

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"stockroom/pkg/platform/sentinel"
)

// Opener opens an origin for reading. Open failures wrap sentinel.ErrUnavailable.
type Opener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// File opens a path on the local filesystem.
type File string

func (f File) Open(_ context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		return nil, unavailable(string(f), err)
	}
	return fh, nil
}

func (f File) String() string { return string(f) }

// Path reports the local path behind o, if it has one.
func Path(o Opener) (string, bool) {
	f, ok := o.(File)
	return string(f), ok
}

// Parse picks an opener for descriptor. "s3://bucket/key" reads through the
// S3 client built from cfg, any other "scheme://" goes through afs, and
// everything else is a local path.
func Parse(ctx context.Context, descriptor string, cfg S3Config) (Opener, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, fmt.Errorf("origin is required: %w", sentinel.ErrInvalidConfig)
	}
	if rest, ok := strings.CutPrefix(descriptor, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return nil, fmt.Errorf("s3 origin %q must be s3://bucket/key: %w", descriptor, sentinel.ErrInvalidConfig)
		}
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Object(client, bucket, key), nil
	}
	if strings.Contains(descriptor, "://") {
		return NewURL(descriptor), nil
	}
	return File(descriptor), nil
}

func unavailable(what string, err error) error {
	return fmt.Errorf("open %s: %w: %w", what, sentinel.ErrUnavailable, err)
}
