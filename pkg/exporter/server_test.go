package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_BadAddr(t *testing.T) {
	srv := NewServer("256.0.0.1:99999", prometheus.NewRegistry(), nil)
	err := srv.Run(context.Background())
	assert.Error(t, err)
}
