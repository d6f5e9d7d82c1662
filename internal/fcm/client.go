package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// DefaultEndpoint is the legacy FCM HTTP endpoint.
const DefaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Client sends notifications through the legacy FCM HTTP API.
type Client struct {
	endpoint    string
	apiKey      string
	clickAction string
	dryRun      bool
	client      *http.Client
}

func NewClient(apiKey, clickAction string, dryRun bool) *Client {
	return &Client{
		endpoint:    DefaultEndpoint,
		apiKey:      apiKey,
		clickAction: clickAction,
		dryRun:      dryRun,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type notification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ClickAction string `json:"click_action"`
}

type sendRequest struct {
	To           string          `json:"to"`
	Notification notification    `json:"notification"`
	Data         json.RawMessage `json:"data"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// Send pushes one notification to the device token. A nil data payload is
// sent as an empty object; the gateway rejects null there. In dry-run mode
// the request is logged and skipped.
func (c *Client) Send(ctx context.Context, to, title, body string, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	if c.dryRun {
		log.Printf("[fcm] dry run: to=%s title=%q body=%q data=%s", to, title, body, data)
		return nil
	}

	payload, err := json.Marshal(sendRequest{
		To: to,
		Notification: notification{
			Title:       title,
			Body:        body,
			ClickAction: c.clickAction,
		},
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("marshal fcm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm send: status %s", resp.Status)
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode fcm response: %w", err)
	}
	if result.Failure > 0 {
		reason := "unknown"
		if len(result.Results) > 0 && result.Results[0].Error != "" {
			reason = result.Results[0].Error
		}
		return fmt.Errorf("fcm rejected message: %s", reason)
	}
	return nil
}
