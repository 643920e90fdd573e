package strategy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, handler func(hit int32, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(hits.Add(1), w)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDownloader_Fetch(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
		io.WriteString(w, "payload")
	})
	d, err := NewDownloader(srv.Client(), 1, 0, testLogger())
	require.NoError(t, err)

	content, err := d.Fetch(context.Background(), domain.PlatformWhatsApp, getRequest(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), content)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_ClientErrorNotRetried(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
	})
	d, err := NewDownloader(srv.Client(), 3, 0, testLogger())
	require.NoError(t, err)

	_, err = d.Fetch(context.Background(), domain.PlatformTelegram, getRequest(srv.URL))

	var dlErr *domain.DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, http.StatusForbidden, dlErr.StatusCode)
	assert.Equal(t, domain.PlatformTelegram, dlErr.Platform)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_ServerErrorRetried(t *testing.T) {
	srv, hits := countingServer(t, func(hit int32, w http.ResponseWriter) {
		if hit == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "second time")
	})
	d, err := NewDownloader(srv.Client(), 3, 0, testLogger())
	require.NoError(t, err)

	content, err := d.Fetch(context.Background(), domain.PlatformWhatsApp, getRequest(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, []byte("second time"), content)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloader_SingleAttemptByDefault(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	d, err := NewDownloader(srv.Client(), 0, 0, testLogger())
	require.NoError(t, err)

	_, err = d.Fetch(context.Background(), domain.PlatformWhatsApp, getRequest(srv.URL))

	var dlErr *domain.DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, http.StatusServiceUnavailable, dlErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_SizeLimit(t *testing.T) {
	srv, _ := countingServer(t, func(_ int32, w http.ResponseWriter) {
		io.WriteString(w, "0123456789")
	})
	d, err := NewDownloader(srv.Client(), 1, 4, testLogger())
	require.NoError(t, err)

	_, err = d.Fetch(context.Background(), domain.PlatformWhatsApp, getRequest(srv.URL))
	assert.ErrorContains(t, err, "exceeds 4 bytes")
}
