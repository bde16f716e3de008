package ready

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateBlocksUntilResolved(t *testing.T) {
	g := NewGate()
	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait(context.Background()) }()

	select {
	case <-errCh:
		t.Fatal("wait returned before resolve")
	case <-time.After(20 * time.Millisecond):
	}

	g.Resolve()
	g.Resolve()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after resolve")
	}
}

func TestGateWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, NewGate().Wait(ctx), context.DeadlineExceeded)
}

func TestNilGateNeverBlocks(t *testing.T) {
	var g *Gate
	require.NoError(t, g.Wait(context.Background()))
	require.NoError(t, Resolved().Wait(context.Background()))
}

func TestWaitReachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, WaitReachable(ctx, 10*time.Millisecond, srv.URL+"/predict-trait", srv.URL))
}

func TestWaitReachableGivesUpWithContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	closed := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := WaitReachable(ctx, 10*time.Millisecond, closed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReachableRejectsBadURL(t *testing.T) {
	require.Error(t, WaitReachable(context.Background(), time.Millisecond, "not a url"))
}

func TestHostPortDefaults(t *testing.T) {
	for in, want := range map[string]string{
		"http://trait.local/predict":  "trait.local:80",
		"https://llm.example.com/gen": "llm.example.com:443",
		"http://localhost:9100/p":     "localhost:9100",
	} {
		got, err := hostPort(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
