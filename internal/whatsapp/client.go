// Package whatsapp is a thin Graph API client for media fetch and
// outbound text replies.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client talks to the messaging provider.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

// NewClient creates a client for the given access token and sending
// phone number id.
func NewClient(token, phoneNumberID string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultBaseURL,
		token:         token,
		phoneNumberID: phoneNumberID,
	}
}

// MediaURL resolves a media id to its downloadable URL.
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	body, err := c.get(ctx, c.baseURL+"/"+mediaID)
	if err != nil {
		return "", fmt.Errorf("MediaURL: %w", err)
	}

	url := gjson.GetBytes(body, "url").String()
	if url == "" {
		return "", fmt.Errorf("MediaURL: no url in response for media %s", mediaID)
	}
	return url, nil
}

// DownloadMedia fetches the raw bytes behind a resolved media URL.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("DownloadMedia: %w", err)
	}
	return body, nil
}

// SendText sends a plain text reply. Delivery is best-effort; callers
// log failures and move on.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("SendText: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("SendText: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SendText: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("SendText: provider returned %s", resp.Status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
