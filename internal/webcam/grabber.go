// Package webcam fetches snapshot frames from beach webcams. It supports
// plain snapshot URLs with optional fallbacks and the windy:// scheme for
// webcams addressed through the Windy webcams API.
package webcam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
	"github.com/nicovlr/coastwatch/internal/frame"
	"github.com/nicovlr/coastwatch/internal/logging"
)

// maxFrameBytes bounds snapshot downloads; webcam stills are small and a
// multi-megabyte body means something else is being served.
const maxFrameBytes = 8 << 20

// Grabber fetches a single snapshot frame for a beach.
type Grabber interface {
	FetchSnapshot(ctx context.Context, beach *conf.Beach) (*frame.Frame, error)
}

// HTTPGrabber is the production Grabber implementation.
type HTTPGrabber struct {
	client      *http.Client
	maxRetries  int
	backoffBase time.Duration
	windyAPIKey string
	log         *slog.Logger
}

// NewGrabber creates an HTTPGrabber from capture settings. The Windy API
// key is read from the WINDY_API_KEY environment variable, matching how
// the provider documents key distribution.
func NewGrabber(settings *conf.CaptureSettings) *HTTPGrabber {
	return &HTTPGrabber{
		client: &http.Client{
			Timeout: time.Duration(settings.RequestTimeout * float64(time.Second)),
		},
		maxRetries:  settings.MaxRetries,
		backoffBase: time.Duration(settings.RetryBackoff * float64(time.Second)),
		windyAPIKey: os.Getenv("WINDY_API_KEY"),
		log:         logging.ForService("webcam"),
	}
}

// FetchSnapshot tries the beach's snapshot URL and then each fallback URL
// in order. Every URL gets its own retry budget. When all URLs fail the
// returned error wraps ErrCaptureUnavailable.
func (g *HTTPGrabber) FetchSnapshot(ctx context.Context, beach *conf.Beach) (*frame.Frame, error) {
	urls := append([]string{beach.Webcam.SnapshotURL}, beach.Webcam.FallbackURLs...)

	var lastErr error
	for _, url := range urls {
		data, err := g.fetchURL(ctx, url, beach)
		if err == nil {
			return frame.New(beach.ID, data, time.Now().UTC(), url), nil
		}
		lastErr = err
		g.log.Warn("snapshot fetch failed",
			"beach_id", beach.ID, "url", url, "error", err)
	}

	return nil, errors.New(fmt.Errorf("all %d webcam URL(s) failed for %s (last: %v): %w",
		len(urls), beach.ID, lastErr, errors.ErrCaptureUnavailable)).
		Component("webcam").
		Category(errors.CategoryImageFetch).
		Context("beach_id", beach.ID).
		Context("urls_tried", len(urls)).
		Build()
}

// fetchURL dispatches on the URL scheme and retries transient failures
// with exponential backoff.
func (g *HTTPGrabber) fetchURL(ctx context.Context, url string, beach *conf.Beach) ([]byte, error) {
	fetch := func() ([]byte, error) {
		if strings.HasPrefix(url, "windy://") {
			return g.fetchWindy(ctx, strings.TrimPrefix(url, "windy://"))
		}
		return g.fetchDirect(ctx, url, beach.Webcam.Headers)
	}

	var data []byte
	op := func() error {
		var err error
		data, err = fetch()
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(g.retryBackOff(), uint64(g.maxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return data, nil
}

func (g *HTTPGrabber) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.backoffBase
	b.MaxInterval = g.backoffBase * 8
	return b
}

func (g *HTTPGrabber) fetchDirect(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("received non-200 response: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.NewStd("empty snapshot body")
	}
	return data, nil
}
