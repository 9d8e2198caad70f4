package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient_Defaults(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient(Options{})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s, want %s", c.Timeout, DefaultTimeout)
	}
}

func TestNewHTTPClient_CustomTimeout(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient(Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if c.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s, want 2s", c.Timeout)
	}
}

func TestNewHTTPClient_HTTP2(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient(Options{HTTP2: true})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", c.Transport)
	}
	if _, ok := tr.TLSNextProto["h2"]; !ok {
		t.Error("expected h2 to be registered in TLSNextProto")
	}
}

func TestNewHTTPClient_DoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("redirect target should not be requested")
	}))
	defer target.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusTemporaryRedirect)
	}))
	defer redirector.Close()

	c, err := NewHTTPClient(Options{})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, redirector.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
}
