package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServer_RunStopsComponentsInReverseOrder(t *testing.T) {
	srv := NewServer(http.NotFoundHandler(), "127.0.0.1:0", time.Second, time.Second, 2*time.Second, zaptest.NewLogger(t))

	var order []string
	srv.OnShutdown("first", func(context.Context) error { order = append(order, "first"); return nil })
	srv.OnShutdown("second", func(context.Context) error { order = append(order, "second"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, []string{"second", "first"}, order)
}

func TestServer_ShutdownErrorsAreJoined(t *testing.T) {
	srv := NewServer(http.NotFoundHandler(), "127.0.0.1:0", time.Second, time.Second, time.Second, zaptest.NewLogger(t))
	boom := errors.New("boom")
	srv.OnShutdown("bad", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, srv.Run(ctx), boom)
}
