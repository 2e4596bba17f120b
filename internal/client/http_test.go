package client

import (
	"net/http"
	"testing"
	"time"
)

func TestInitHTTPClientFillsDefaults(t *testing.T) {
	sharedClient = nil
	clientInitialized = false

	InitHTTPClient(&Config{})
	c := GetHTTPClient()

	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr == nil {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.MaxIdleConns == 0 {
		t.Fatalf("expected MaxIdleConns defaulted, got %d", tr.MaxIdleConns)
	}
	if tr.MaxIdleConnsPerHost == 0 {
		t.Fatalf("expected MaxIdleConnsPerHost defaulted, got %d", tr.MaxIdleConnsPerHost)
	}
	if c.Timeout == 0 {
		t.Fatalf("expected RequestTimeout defaulted, got %v", c.Timeout)
	}
}

func TestConfigureHTTPClientReplacesSettings(t *testing.T) {
	sharedClient = nil
	clientInitialized = false

	ConfigureHTTPClient(&Config{RequestTimeout: 3 * time.Second, MaxIdleConns: 7})
	c := GetHTTPClient()

	if c.Timeout != 3*time.Second {
		t.Fatalf("expected request timeout 3s, got %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr == nil {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.MaxIdleConns != 7 {
		t.Fatalf("expected MaxIdleConns 7, got %d", tr.MaxIdleConns)
	}
}

func TestGetHTTPClientLazyInit(t *testing.T) {
	sharedClient = nil
	clientInitialized = false

	c := GetHTTPClient()
	if c == nil {
		t.Fatal("expected lazily initialized client, got nil")
	}
	if c != GetHTTPClient() {
		t.Fatal("expected the same shared instance on repeat calls")
	}
}
