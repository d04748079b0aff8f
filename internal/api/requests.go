package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sadopc/hookscope/internal/capture"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ExportFormat is a server-side export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// List fetches up to limit captures starting at skip, newest first.
func (c *Client) List(ctx context.Context, limit, skip int) ([]capture.Record, error) {
	u := c.endpoint("api", "requests", "@"+c.account)
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, "list requests", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	records, err := capture.DecodePage(body)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	c.log.Debug("api: listed requests", "account", c.account, "limit", limit, "skip", skip, "count", len(records))
	return records, nil
}

// Count returns the number of captures stored for the account.
func (c *Client) Count(ctx context.Context) (int, error) {
	body, err := c.do(ctx, "count requests", http.MethodGet, c.endpoint("api", "requests", "@"+c.account, "count"), nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Count == nil {
		return 0, fmt.Errorf("count requests: %w", capture.ErrInvalidData)
	}
	return *out.Count, nil
}

// Delete removes one capture.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete request", http.MethodDelete, c.endpoint("api", "requests", "@"+c.account, id), nil)
	return err
}

// DeleteAll removes every capture of the account and returns how many
// were deleted.
func (c *Client) DeleteAll(ctx context.Context) (int, error) {
	body, err := c.do(ctx, "clear requests", http.MethodDelete, c.endpoint("api", "requests", "@"+c.account), nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		DeletedCount int `json:"deleted_count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("clear requests: %w", capture.ErrInvalidData)
	}
	return out.DeletedCount, nil
}

// Export streams the server-side export of all captures to w.
func (c *Client) Export(ctx context.Context, format ExportFormat, w io.Writer) (int64, error) {
	switch format {
	case ExportCSV, ExportJSON:
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}
	u := c.endpoint("api", "requests", "@"+c.account, "export")
	u.RawQuery = url.Values{"format": {string(format)}}.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &FetchError{Op: "export requests", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, statusError("export requests", resp, body)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &FetchError{Op: "export requests", Err: err}
	}
	return n, nil
}

// UpdateConfig validates cfg locally and then replaces the account's
// capture endpoint configuration.
func (c *Client) UpdateConfig(ctx context.Context, cfg AccountConfig) (AccountConfig, error) {
	if err := cfg.Validate(); err != nil {
		return AccountConfig{}, err
	}
	payload, err := json.Marshal(struct {
		DefaultResponse json.RawMessage `json:"default_response"`
		ResponseTimeMin int             `json:"response_time_min"`
		ResponseTimeMax int             `json:"response_time_max"`
	}{cfg.DefaultResponse, cfg.ResponseTimeMin, cfg.ResponseTimeMax})
	if err != nil {
		return AccountConfig{}, fmt.Errorf("encoding account config: %w", err)
	}

	body, err := c.do(ctx, "update config", http.MethodPut, c.endpoint("api", "users", c.account), payload)
	if err != nil {
		return AccountConfig{}, err
	}
	var out AccountConfig
	if err := json.Unmarshal(body, &out); err != nil {
		return AccountConfig{}, fmt.Errorf("update config: %w", capture.ErrInvalidData)
	}
	return out, nil
}

// do performs a JSON request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method string, u *url.URL, payload []byte) ([]byte, error) {
	req, err := c.newRequest(ctx, method, u, payload)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		fe := statusError(op, resp, body)
		c.log.Debug("api: request failed", "op", op, "status", resp.StatusCode, "message", fe.Message)
		return nil, fe
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}
