package limiter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newCountingServer(inFlight, peak *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
}

func TestTransportCapsInFlightRequests(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := newCountingServer(&inFlight, &peak)
	defer server.Close()

	// Two clients sharing one transport behave like the feed and story fetchers.
	transport := NewTransport(nil, 2)
	clients := []*http.Client{{Transport: transport}, {Transport: transport}}

	var failures atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := clients[i%2].Get(server.URL)
			if err != nil {
				failures.Add(1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("Expected no failed requests, got %d", failures.Load())
	}
	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 requests in flight, got %d", peak.Load())
	}
	if peak.Load() == 0 {
		t.Error("Expected requests to reach the server")
	}
}

func TestTransportReleasesOnClose(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := newCountingServer(&inFlight, &peak)
	defer server.Close()

	client := &http.Client{Transport: NewTransport(nil, 1)}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("Expected request %d to succeed, got: %v", i, err)
		}
		resp.Body.Close()
		resp.Body.Close()
	}
}

func TestTransportHonoursContext(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := newCountingServer(&inFlight, &peak)
	defer server.Close()

	client := &http.Client{Transport: NewTransport(nil, 1)}

	held, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Expected first request to succeed, got: %v", err)
	}
	defer held.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if _, err := client.Do(req); err == nil {
		t.Error("Expected request waiting for a slot to fail when its context ends")
	}
}
