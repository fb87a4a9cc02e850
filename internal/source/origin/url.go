package origin

import (
	"bytes"
	"context"
	"io"

	"github.com/viant/afs"
)

// URL reads an origin through afs, which resolves file://, mem://, http(s)://
// and any other scheme it has a manager for.
type URL struct {
	url string
	fs  afs.Service
}

// NewURL returns an opener for url backed by a fresh afs service.
func NewURL(url string) *URL {
	return NewURLWithService(afs.New(), url)
}

// NewURLWithService returns an opener for url backed by fs.
func NewURLWithService(fs afs.Service, url string) *URL {
	return &URL{url: url, fs: fs}
}

func (u *URL) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := u.fs.DownloadWithURL(ctx, u.url)
	if err != nil {
		return nil, unavailable(u.url, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (u *URL) String() string { return u.url }
