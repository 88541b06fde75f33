package limiter

import (
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Transport caps the number of HTTP requests in flight across every client
// that shares it. A slot is held from the request until its response body is
// closed.
type Transport struct {
	base http.RoundTripper
	sem  *semaphore.Weighted
}

func NewTransport(base http.RoundTripper, limit int) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if limit < 1 {
		limit = 1
	}
	return &Transport{base: base, sem: semaphore.NewWeighted(int64(limit))}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}

	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

var _ http.RoundTripper = (*Transport)(nil)
