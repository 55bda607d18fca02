package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// BridgeClient talks to the device through its HTTP bridge
type BridgeClient struct {
	baseURL string
	client  *http.Client
}

// NewBridgeClient creates a new bridge client for baseURL, e.g. http://127.0.0.1:8080
func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Command runs one protocol line through the bridge
func (c *BridgeClient) Command(ctx context.Context, line string) ([]string, error) {
	body, err := json.Marshal(model.CommandRequest{Line: line})
	if err != nil {
		return nil, err
	}

	var resp model.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/device/command", body, &resp); err != nil {
		return nil, err
	}
	return resp.Responses, nil
}

// Ping checks the device answers
func (c *BridgeClient) Ping(ctx context.Context) error {
	return ping(ctx, c)
}

// Addresses returns the device addresses with their QR codes
func (c *BridgeClient) Addresses(ctx context.Context) ([]model.AddressEntry, error) {
	var resp model.AddressesResponse
	if err := c.do(ctx, http.MethodGet, "/device/addresses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// Status returns the bridge status document
func (c *BridgeClient) Status(ctx context.Context) (model.StatusResponse, error) {
	var resp model.StatusResponse
	err := c.do(ctx, http.MethodGet, "/device/status", nil, &resp)
	return resp, err
}

func (c *BridgeClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr model.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s failed: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s failed: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
