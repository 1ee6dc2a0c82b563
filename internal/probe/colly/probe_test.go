package collyprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbe_ReachablePage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second})
	require.NoError(t, p.Probe(context.Background(), srv.URL))
}

func TestProbe_NotFoundFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second})
	require.Error(t, p.Probe(context.Background(), srv.URL))
}

func TestProbe_UnreachableHostFails(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: time.Second})
	require.Error(t, p.Probe(context.Background(), "http://127.0.0.1:1/page"))
}

func TestProbe_MalformedURLFails(t *testing.T) {
	t.Parallel()

	p := New(Config{Timeout: time.Second})
	require.Error(t, p.Probe(context.Background(), "not a url"))
}
