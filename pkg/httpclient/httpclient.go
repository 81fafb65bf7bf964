// Package httpclient holds small generic helpers for JSON HTTP APIs.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// maxErrorBody bounds how much of an unexpected response is quoted in errors.
const maxErrorBody = 512

// StatusError is returned when the server answers with a status that was not expected.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// GetResource performs a GET on baseURL+endpoint and decodes the JSON body into T.
func GetResource[T any](ctx context.Context, c *http.Client, baseURL, endpoint string, okStatuses []int) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+endpoint, nil)
	if err != nil {
		return zero, fmt.Errorf("couldn't create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return Do[T](c, req, okStatuses)
}

// PostResource sends body as JSON to baseURL+endpoint and decodes the JSON response into T.
func PostResource[T any](ctx context.Context, c *http.Client, baseURL, endpoint string, body any, header http.Header, okStatuses []int) (T, error) {
	var zero T
	payload, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("couldn't encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return zero, fmt.Errorf("couldn't create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return Do[T](c, req, okStatuses)
}

// Do executes req and decodes the JSON response into T when the status is one of okStatuses.
func Do[T any](c *http.Client, req *http.Request, okStatuses []int) (T, error) {
	var res T
	resp, err := c.Do(req)
	if err != nil {
		return res, fmt.Errorf("couldn't %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if !slices.Contains(okStatuses, resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return res, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("couldn't decode %s response: %w", req.URL.Path, err)
	}
	return res, nil
}
