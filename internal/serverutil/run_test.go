package serverutil

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestRunRequiresServer(t *testing.T) {
	t.Parallel()

	if err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected an error for a missing server")
	}
}

func TestRunRejectsHalfConfiguredTLS(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "127.0.0.1:0"}
	err := Run(context.Background(), Config{
		Server: srv,
		TLS:    TLSConfig{CertFile: "cert.pem"},
	})
	if err == nil {
		t.Fatal("expected an error for TLS cert without key")
	}
}

func TestRunServesAndShutsDownGracefully(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Server: srv, ShutdownTimeout: time.Second, Ready: ready})
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after graceful shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "256.256.256.256:99999"}
	if err := Run(context.Background(), Config{Server: srv}); err == nil {
		t.Fatal("expected a listen error for an invalid address")
	}
}
