// Package netx wraps the JSON-over-HTTP round trips used by the origin
// adapter and the admin CLI.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 32 << 20

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DoJSON sends payload (if non-nil) as compact JSON and reads the whole
// response. Only transport failures are returned as errors; any HTTP status
// is handed back to the caller.
func DoJSON(ctx context.Context, client *http.Client, method, url string, payload any, header http.Header) (*Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: b}, nil
}

// PostJSON is DoJSON with POST.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, header http.Header) (*Response, error) {
	return DoJSON(ctx, client, http.MethodPost, url, payload, header)
}
