package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client looks up asset metadata from the assets service.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type assetsResponse struct {
	Data []struct {
		Data struct {
			Ticker *string `json:"ticker"`
		} `json:"data"`
	} `json:"data"`
}

// Ticker returns the display symbol for an asset id, or "" when the service
// knows no ticker for it.
func (c *Client) Ticker(ctx context.Context, assetID string) (string, error) {
	u := fmt.Sprintf("%s/assets?ids=%s", c.baseURL, url.QueryEscape(assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("assets service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assets service: status %s", resp.Status)
	}

	var body assetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode assets response: %w", err)
	}
	if len(body.Data) == 0 || body.Data[0].Data.Ticker == nil {
		return "", nil
	}
	return *body.Data[0].Data.Ticker, nil
}
