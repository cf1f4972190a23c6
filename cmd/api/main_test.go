package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"bookmarket_backend/platform/logger"
)

func TestServeStopsOnContextCancel(t *testing.T) {
	log := logger.New("development")
	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NewServeMux(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, log, srv)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v after cancel, want clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}

func TestServeSurfacesListenErrors(t *testing.T) {
	log := logger.New("development")
	srv := &http.Server{
		Addr:    "256.256.256.256:0",
		Handler: http.NewServeMux(),
	}

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), log, srv)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("serve returned nil for an unbindable address")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return the listen error")
	}
}
