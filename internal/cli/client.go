package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/casely/internal/netx"
	"github.com/goccy/go-json"
)

type apiClient struct {
	base string
	http *http.Client
}

// call sends payload to path and decodes a 2xx body into out. Non-2xx
// answers are turned into errors carrying the server's message.
func (c *apiClient) call(ctx context.Context, method, path string, payload, out any) error {
	url := strings.TrimRight(c.base, "/") + path

	resp, err := netx.DoJSON(ctx, c.http, method, url, payload, nil)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.base, err)
	}

	if !resp.OK() {
		var e struct {
			Error  string                       `json:"error"`
			Fields map[string]map[string]string `json:"fields"`
		}
		if json.Unmarshal(resp.Body, &e) == nil && e.Error != "" {
			if len(e.Fields) > 0 {
				return fmt.Errorf("server returned %d: %s %v", resp.Status, e.Error, e.Fields)
			}
			return fmt.Errorf("server returned %d: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
