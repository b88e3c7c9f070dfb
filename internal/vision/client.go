package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nicovlr/coastwatch/internal/conf"
	"github.com/nicovlr/coastwatch/internal/errors"
)

const systemPrompt = `You are a coastal conditions analyst specializing in French Atlantic beaches. You analyze webcam images to provide structured reports on beach conditions, including dangerous rip current detection (courants de baïne).

Return a JSON object with this exact schema:

{
  "currents": {
    "danger_level": "safe|low|moderate|high|extreme",
    "rip_current_detected": <boolean>,
    "indicators": ["<list of observed indicators>"],
    "confidence": <float 0.0-1.0>,
    "notes": "<string, 1-3 sentences about current safety>"
  },
  "overall": {
    "beach_score": <float 1.0-10.0>,
    "surf_score": <float 1.0-10.0 or null if not a surf spot>,
    "summary": "<string, 2-3 sentences describing overall conditions>",
    "recommendation": "<string, actionable advice for visitors>",
    "best_for": ["<activity1>", "<activity2>"]
  }
}

For rip current analysis, look for these visual indicators:
- Channels of darker, calmer water cutting through breaking waves
- Discolored or muddy water flowing seaward
- Foam, seaweed, or debris moving steadily out to sea
- A gap in the line of breaking waves
- Choppy, turbulent water in a narrow band going offshore

If the image shows low tide with exposed sandbars or a receding tide, increase vigilance for baïnes (rip currents common on the French Atlantic coast).

Respond ONLY with valid JSON. No markdown, no commentary outside the JSON.`

// Client calls the Anthropic Messages API with a frame and prompt context.
type Client struct {
	settings *conf.VisionSettings
	client   *http.Client
}

// NewClient creates a vision client from settings.
func NewClient(settings *conf.VisionSettings) *Client {
	return &Client{
		settings: settings,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// request/response wire types for the Messages API.

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnalyzeFrame sends the frame and its context to the model and returns
// the parsed structured result.
func (c *Client) AnalyzeFrame(ctx context.Context, imageBytes []byte, pctx *PromptContext) (*Result, error) {
	if c.settings.APIKey == "" {
		return nil, providerError(errors.NewStd("vision API key not configured"))
	}

	reqBody := messagesRequest{
		Model:     c.settings.Model,
		MaxTokens: c.settings.MaxTokens,
		System:    systemPrompt,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: "image/jpeg",
						Data:      base64.StdEncoding.EncodeToString(imageBytes),
					},
				},
				{Type: "text", Text: buildPrompt(pctx)},
			},
		}},
	}

	payload, err := json.Marshal(&reqBody)
	if err != nil {
		return nil, providerError(fmt.Errorf("encoding vision request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, providerError(fmt.Errorf("building vision request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.settings.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, providerError(fmt.Errorf("calling vision API: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(fmt.Errorf("reading vision response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providerError(fmt.Errorf("vision API returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providerError(fmt.Errorf("decoding vision response envelope: %w", err))
	}
	if len(parsed.Content) == 0 {
		return nil, providerError(errors.NewStd("vision response has no content blocks"))
	}

	result, err := ParseResult(parsed.Content[0].Text)
	if err != nil {
		return nil, providerError(fmt.Errorf("parsing vision analysis: %w", err))
	}
	return result, nil
}

// buildPrompt assembles the per-frame context text. Only fields the
// earlier pipeline stages actually produced are mentioned.
func buildPrompt(pctx *PromptContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Beach: %s (%s)\n", pctx.BeachName, pctx.Region)
	fmt.Fprintf(&sb, "Camera facing: %s\n", pctx.Orientation)
	if pctx.SurfSpot {
		sb.WriteString("Surf spot: yes\n")
	} else {
		sb.WriteString("Surf spot: no\n")
	}
	fmt.Fprintf(&sb, "Captured at: %s\n", pctx.CapturedAt.UTC().Format(time.RFC3339))

	if pctx.PersonCount != nil {
		fmt.Fprintf(&sb, "Person detection: %d person(s) on the beach\n", *pctx.PersonCount)
	}
	if pctx.WaveLevel != "" {
		fmt.Fprintf(&sb, "Wave analysis: %s", pctx.WaveLevel)
		if pctx.WhitecapRatio != nil {
			fmt.Fprintf(&sb, " (whitecap ratio %.3f)", *pctx.WhitecapRatio)
		}
		sb.WriteString("\n")
	}
	if pctx.WeatherLine != "" {
		fmt.Fprintf(&sb, "Weather: %s\n", pctx.WeatherLine)
	}

	sb.WriteString("\nAnalyze this image and return the JSON report. Pay special attention to rip current indicators.")
	return sb.String()
}

func providerError(err error) error {
	return errors.New(err).
		Component("vision").
		Category(errors.CategoryProvider).
		Build()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
