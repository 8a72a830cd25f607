package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Health mirrors the server's /api/health response.
type Health struct {
	Status       string `json:"status"`
	Clients      int    `json:"clients"`
	SongSelected bool   `json:"songSelected"`
	Uptime       string `json:"uptime"`
}

// HTTPClient makes REST calls to the rehearsal server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:3000").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetHealth fetches /api/health.
func (c *HTTPClient) GetHealth() (*Health, error) {
	var h Health
	if err := c.get("/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) get(path string, out any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
