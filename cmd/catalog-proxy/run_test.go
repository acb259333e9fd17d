package main

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/catalog-client/internal/config"
	"github.com/Sternrassler/catalog-client/pkg/auth"
	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/rs/zerolog"
)

func testProxyConfig() config.Proxy {
	return config.Proxy{
		CatalogURL:        client.DefaultEndpoint,
		CatalogPassword:   auth.DefaultPassword,
		CatalogTimeout:    time.Second,
		CatalogUserAgent:  "catalog-proxy-test",
		HTTPAddr:          "127.0.0.1:0",
		LogLevel:          logging.LevelInfo,
		ShutdownTimeout:   time.Second,
		ReadHeaderTimeout: time.Second,
	}
}

func TestRun_RedisUnreachable(t *testing.T) {
	cfg := testProxyConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	err := run(context.Background(), cfg, zerolog.Nop())
	if err == nil {
		t.Fatal("run() with unreachable Redis = nil, want error")
	}
	if !strings.Contains(err.Error(), "connect redis") {
		t.Errorf("error = %v, want connect redis failure", err)
	}
}

func TestRun_InvalidEndpoint(t *testing.T) {
	cfg := testProxyConfig()
	cfg.CatalogURL = "not-a-url"

	err := run(context.Background(), cfg, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "create catalog client") {
		t.Errorf("run() error = %v, want create catalog client failure", err)
	}
}

func TestRun_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	defer ln.Close()

	cfg := testProxyConfig()
	cfg.HTTPAddr = ln.Addr().String()

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), cfg, zerolog.Nop()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "http server") {
			t.Errorf("run() error = %v, want http server failure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after listen failure")
	}
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, testProxyConfig(), zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
