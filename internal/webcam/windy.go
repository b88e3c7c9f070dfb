package webcam

import (
	"context"
	"fmt"
	"net/http"

	"github.com/antonholmquist/jason"
	"github.com/cenkalti/backoff/v4"
)

// windyAPIURL is the Windy webcams API v3 base endpoint.
const windyAPIURL = "https://api.windy.com/webcams/api/v3/webcams"

// fetchWindy resolves a windy:// webcam reference: it asks the Windy API
// for the webcam's current image URLs and downloads the largest available
// one. Preview is preferred over icon over thumbnail.
func (g *HTTPGrabber) fetchWindy(ctx context.Context, webcamID string) ([]byte, error) {
	if g.windyAPIKey == "" {
		return nil, backoff.Permanent(fmt.Errorf("WINDY_API_KEY not set, cannot resolve windy webcam %s", webcamID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?include=images", windyAPIURL, webcamID), http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("building windy request: %w", err))
	}
	req.Header.Set("X-WINDY-API-KEY", g.windyAPIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying windy API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("windy API returned %d for webcam %s", resp.StatusCode, webcamID)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	doc, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing windy response: %w", err)
	}

	imageURL := firstWindyImageURL(doc)
	if imageURL == "" {
		return nil, backoff.Permanent(fmt.Errorf("no image URL in windy response for webcam %s", webcamID))
	}

	return g.fetchDirect(ctx, imageURL, nil)
}

func firstWindyImageURL(doc *jason.Object) string {
	for _, key := range []string{"preview", "icon", "thumbnail"} {
		if url, err := doc.GetString("images", "current", key); err == nil && url != "" {
			return url
		}
	}
	return ""
}
