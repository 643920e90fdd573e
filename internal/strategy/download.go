package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/retry"
)

const DefaultMaxDownloadBytes = 100 << 20

// Downloader fetches media from platform CDNs. Client errors end the attempt loop at once,
// server and transport errors are retried up to the configured attempts.
type Downloader struct {
	httpClient *http.Client
	retrier    *retry.Retrier
	maxBytes   int64
	logger     *slog.Logger
}

func NewDownloader(httpClient *http.Client, maxAttempts int, maxBytes int64, logger *slog.Logger) (*Downloader, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}

	retrier, err := retry.New(retry.WithMaxAttemps(maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	return &Downloader{
		httpClient: httpClient,
		retrier:    retrier,
		maxBytes:   maxBytes,
		logger:     logger,
	}, nil
}

// Fetch performs the request built by newReq and returns the whole response body
func (d *Downloader) Fetch(ctx context.Context, platform domain.Platform, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var (
		content []byte
		lastErr error
	)

	retryFunc := func(attempt int) (terminate bool) {
		attemptLogger := d.logger.With(slog.String("platform", string(platform)), slog.Int("attempt", attempt))

		req, err := newReq(ctx)
		if err != nil {
			lastErr = &domain.DownloadError{Platform: platform, Err: err}
			return true
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			attemptLogger.Error("failed to fetch media", "error", err.Error())
			lastErr = &domain.DownloadError{Platform: platform, Err: err}
			return false
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			// 5XX status code indicates server error, try retry
			attemptLogger.Error("media server error", "statusCode", resp.StatusCode)
			lastErr = &domain.DownloadError{Platform: platform, StatusCode: resp.StatusCode}
			return false
		} else if resp.StatusCode >= http.StatusBadRequest {
			// 4XX indicates client error, no need to retry
			attemptLogger.Error("media request rejected", "statusCode", resp.StatusCode)
			lastErr = &domain.DownloadError{Platform: platform, StatusCode: resp.StatusCode}
			return true
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
		if err != nil {
			attemptLogger.Error("failed to read media body", "error", err.Error())
			lastErr = &domain.DownloadError{Platform: platform, Err: err}
			return false
		}
		if int64(len(body)) > d.maxBytes {
			lastErr = &domain.DownloadError{Platform: platform, Err: fmt.Errorf("file exceeds %d bytes", d.maxBytes)}
			return true
		}

		content, lastErr = body, nil
		return true
	}

	success := <-d.retrier.Retry(ctx, retryFunc, true)

	if lastErr != nil {
		return nil, lastErr
	}
	if !success || content == nil {
		return nil, &domain.DownloadError{Platform: platform, Err: errors.New("no content received")}
	}
	return content, nil
}
