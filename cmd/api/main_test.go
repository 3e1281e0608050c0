package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupInterval(t *testing.T) {
	assert.Equal(t, 10*time.Second, cleanupInterval(30*time.Second))
	assert.Equal(t, time.Minute, cleanupInterval(30*time.Minute))
	assert.Equal(t, time.Minute, cleanupInterval(0))
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdownCalled := make(chan struct{})
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	srv.RegisterOnShutdown(func() { close(shutdownCalled) })

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	select {
	case <-shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook not called")
	}
}
