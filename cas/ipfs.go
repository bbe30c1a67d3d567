// Content-addressed proof storage backed by the IPFS HTTP api. A paid
// order's encrypted payload is published here and the returned content hash
// is recorded next to the tx hash as the proof artifact.

package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

const DefaultAPIAddr = "http://127.0.0.1:5001"

type Client struct {
	apiAddr string
	http    *http.Client
}

func NewClient(apiAddr string) *Client {
	if apiAddr == "" {
		apiAddr = DefaultAPIAddr
	}
	return &Client{
		apiAddr: apiAddr,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish adds data to the store and returns its content hash. Failures are
// returned to the caller, never swallowed.
func (c *Client) Publish(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "payload")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := c.apiAddr + "/api/v0/add?cid-version=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish to ipfs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add status %s", resp.Status)
	}

	var result struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ipfs response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("ipfs add returned no hash")
	}
	return result.Hash, nil
}
