// Package fetcher resolves the remote image reference from the muses
// metadata endpoint.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

// Fetcher queries the metadata endpoint for the current image URL.
type Fetcher struct {
	apiURL string
	client *http.Client
}

// New creates a Fetcher for the given metadata endpoint. client may be nil,
// in which case a default client with a 10 second timeout is used.
func New(apiURL string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Fetcher{apiURL: apiURL, client: client}
}

// FetchReference performs one request against the metadata endpoint and
// returns the URL of the image to display. Any transport failure, non-2xx
// status, malformed body, or missing field is returned as an error; the
// caller treats all of these as "no reference available" and falls back to
// the cache.
func (f *Fetcher) FetchReference(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Images struct {
			Small string `json:"small"`
		} `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if body.Images.Small == "" {
		return "", fmt.Errorf("no image URL in response")
	}
	return body.Images.Small, nil
}
