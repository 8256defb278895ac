package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ulsys/uls/internal/model"
)

// The logical operations of the API. Each is a thin wrapper over Execute;
// all resilience behavior lives in the executor.

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) (*model.StatusResponse, error) {
	p, err := c.Execute(ctx, "/api/health", CallOptions{})
	if err != nil {
		return nil, err
	}
	var resp model.StatusResponse
	if err := p.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &resp, nil
}

// ListLogs fetches all stored log records, newest first.
func (c *Client) ListLogs(ctx context.Context) ([]model.LogEntry, error) {
	p, err := c.Execute(ctx, "/api/logs", CallOptions{})
	if err != nil {
		return nil, err
	}
	var resp model.ListLogsResponse
	if err := p.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode log list: %w", err)
	}
	return resp.Logs, nil
}

// SubmitLog submits a single log record and returns the stored entry as
// acknowledged by the server.
func (c *Client) SubmitLog(ctx context.Context, entry model.LogEntry) (*model.LogEntry, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode log entry: %w", err)
	}
	p, err := c.Execute(ctx, "/api/logs", CallOptions{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	var resp model.SubmitLogResponse
	if err := p.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return resp.Log, nil
}

// ExportCSV triggers a server-side CSV export and returns the payload
// byte-for-byte as delivered by the transport.
func (c *Client) ExportCSV(ctx context.Context) ([]byte, error) {
	p, err := c.Execute(ctx, "/api/logs/export", CallOptions{})
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// ClearLogs deletes all stored log records.
func (c *Client) ClearLogs(ctx context.Context) error {
	_, err := c.Execute(ctx, "/api/logs/clear", CallOptions{Method: http.MethodPost})
	return err
}

// GenerateKey requests a fresh API key. The endpoint is unauthenticated, so
// no credential is attached.
func (c *Client) GenerateKey(ctx context.Context) (string, error) {
	p, err := c.Execute(ctx, "/api/key/generate", CallOptions{
		Method:        http.MethodPost,
		NoCredentials: true,
	})
	if err != nil {
		return "", err
	}
	var resp model.KeyResponse
	if err := p.Decode(&resp); err != nil {
		return "", fmt.Errorf("decode key response: %w", err)
	}
	if resp.APIKey == "" {
		return "", fmt.Errorf("server returned no api_key (status %q)", resp.Status)
	}
	return resp.APIKey, nil
}
