package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CollectorRequest is one beacon as seen by the Collector.
type CollectorRequest struct {
	ID         string // assigned by the collector
	Method     string
	Path       string
	Header     http.Header
	BodyLen    int
	ReceivedAt time.Time
}

// Collector is an httptest server that records every beacon it receives.
// It knows nothing about header schemes; tests inspect Header directly.
type Collector struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []CollectorRequest
	status   int
	arrived  chan struct{}
}

// NewCollector starts a recording collector that is closed on test cleanup.
func NewCollector(t testing.TB) *Collector {
	t.Helper()

	c := &Collector{
		status:  http.StatusOK,
		arrived: make(chan struct{}, 1024),
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers",
				"TYPE,USR,SESS,CID,PAGE_SECONDS,SCROLLED,X_TYPE,X_USR,X_SESS,X_CID,X_PAGE_SECONDS,X_SCROLLED")
			next.ServeHTTP(w, r)
		})
	})
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/*", c.record)

	c.server = httptest.NewServer(r)
	t.Cleanup(c.server.Close)
	return c
}

func (c *Collector) record(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	c.mu.Lock()
	c.requests = append(c.requests, CollectorRequest{
		ID:         uuid.New().String(),
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     r.Header.Clone(),
		BodyLen:    len(body),
		ReceivedAt: time.Now(),
	})
	status := c.status
	c.mu.Unlock()

	select {
	case c.arrived <- struct{}{}:
	default:
	}

	w.WriteHeader(status)
}

// URL returns the collector base URL.
func (c *Collector) URL() string {
	return c.server.URL
}

// SetStatus changes the status code returned to subsequent beacons.
func (c *Collector) SetStatus(code int) {
	c.mu.Lock()
	c.status = code
	c.mu.Unlock()
}

// Requests returns a copy of the recorded requests in arrival order.
func (c *Collector) Requests() []CollectorRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CollectorRequest(nil), c.requests...)
}

// Count returns the number of recorded requests.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// WaitFor blocks until at least n requests arrived or fails the test after timeout.
func (c *Collector) WaitFor(t testing.TB, n int, timeout time.Duration) []CollectorRequest {
	t.Helper()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if reqs := c.Requests(); len(reqs) >= n {
			return reqs
		}
		select {
		case <-c.arrived:
		case <-deadline.C:
			t.Fatalf("collector got %d requests, want %d within %s", c.Count(), n, timeout)
			return nil
		}
	}
}
