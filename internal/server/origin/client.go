// Package origin talks to the upstream contract service: one list call per
// page, and a detail plus a chat-history call per record.
package origin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/dmitrijs2005/casely/internal/jsonx"
	"github.com/dmitrijs2005/casely/internal/logging"
	"github.com/dmitrijs2005/casely/internal/netx"
	"github.com/dmitrijs2005/casely/internal/server/models"
	"github.com/goccy/go-json"
)

// StatusObserver is told about every auth-rejected response.
type StatusObserver interface {
	NotifyAuthStatus(code int) bool
}

// RequestObserver records one round trip; status is 0 when no response
// arrived.
type RequestObserver interface {
	ObserveOriginRequest(endpoint string, status int, duration time.Duration)
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	Observer StatusObserver
	Requests RequestObserver
	Logger   logging.Logger

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// ListItem is one list entry that passed the business filter.
type ListItem struct {
	ID   int64
	Meta json.RawMessage
}

type ListPage struct {
	Items   []ListItem
	HasMore bool
	// Raw is the number of entries the origin returned before filtering.
	Raw int
}

// Detail holds the two payloads stored for a record, compact JSON.
type Detail struct {
	DetailJSON []byte
	ChatsJSON  []byte
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	observer  StatusObserver
	requests  RequestObserver
	log       logging.Logger
}

func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid origin url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid origin url %q: absolute http(s) url required", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      hc,
		observer:  opts.Observer,
		requests:  opts.Requests,
		log:       opts.Logger,
	}
	return c, nil
}

type envelope struct {
	ReturnCode *int            `json:"returnCode"`
	AppData    json.RawMessage `json:"appData"`
}

type listAppData struct {
	ContractList []json.RawMessage `json:"contractList"`
}

type listEntry struct {
	ID                    *int64 `json:"id"`
	BusinessWorkDsticText string `json:"businessWorkDsticText"`
}

// FetchListPage requests one page and keeps the entries whose business kind
// is in BusinessKinds.
//
// The origin returns ids in descending order across pages. Scanning stops at
// the first id <= lowerBound and the page then reports HasMore=false.
//
// A rejected credential yields ErrAuthRejected, a failed round trip
// ErrTransport. A response the origin marks as failed, or one that cannot be
// read, is treated as an empty page.
func (c *Client) FetchListPage(ctx context.Context, cred models.Credential, page, pageSize int, lowerBound int64) (ListPage, error) {
	env, err := c.post(ctx, ListPath, newListRequest(cred, page, pageSize))
	if errors.Is(err, common.ErrMalformedResponse) {
		c.warn(ctx, "list page unusable, treating as empty", "page", page, "error", err)
		return ListPage{}, nil
	}
	if err != nil {
		return ListPage{}, err
	}

	var data listAppData
	if err := json.Unmarshal(env.AppData, &data); err != nil {
		c.warn(ctx, "list page without contractList, treating as empty", "page", page, "error", err)
		return ListPage{}, nil
	}

	result := ListPage{
		Items:   []ListItem{},
		HasMore: pageSize > 0 && len(data.ContractList) >= pageSize,
		Raw:     len(data.ContractList),
	}

	for _, raw := range data.ContractList {
		var e listEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.ID == nil {
			continue
		}
		if *e.ID <= lowerBound {
			result.HasMore = false
			break
		}
		if !Wanted(e.BusinessWorkDsticText) {
			continue
		}
		result.Items = append(result.Items, ListItem{ID: *e.ID, Meta: raw})
	}

	return result, nil
}

// Wanted reports whether a list entry with the given business kind is kept.
func Wanted(kind string) bool {
	return slices.Contains(BusinessKinds, kind)
}

type chatsAppData struct {
	ChatList json.RawMessage `json:"chatList"`
}

// FetchDetail fetches the detail document (fileText keys removed at any
// depth) and the chat history of record id. Any failure of either call is
// returned as an error.
func (c *Client) FetchDetail(ctx context.Context, cred models.Credential, id int64) (Detail, error) {
	env, err := c.post(ctx, DetailPath, newDetailRequest(cred, id))
	if err != nil {
		return Detail{}, fmt.Errorf("detail %d: %w", id, err)
	}
	doc, err := decodeTree(env.AppData)
	if err != nil {
		return Detail{}, fmt.Errorf("detail %d: %w: %v", id, common.ErrMalformedResponse, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	detail, err := jsonx.Compact(jsonx.StripField(doc, "fileText"))
	if err != nil {
		return Detail{}, fmt.Errorf("detail %d: %w", id, err)
	}

	env, err = c.post(ctx, ChatsPath, newChatsRequest(cred, id))
	if err != nil {
		return Detail{}, fmt.Errorf("chats %d: %w", id, err)
	}
	chats, err := chatList(env.AppData)
	if err != nil {
		return Detail{}, fmt.Errorf("chats %d: %w", id, err)
	}

	return Detail{DetailJSON: detail, ChatsJSON: chats}, nil
}

// chatList extracts appData.chatList; absent, null or non-list values give
// an empty list.
func chatList(appData json.RawMessage) ([]byte, error) {
	var data chatsAppData
	if len(appData) > 0 && !bytes.Equal(appData, []byte("null")) {
		if err := json.Unmarshal(appData, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
		}
	}
	tree, err := decodeTree(data.ChatList)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	list, ok := tree.([]any)
	if !ok {
		list = []any{}
	}
	return jsonx.Compact(list)
}

func decodeTree(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return jsonx.Decode(raw)
}

// post sends payload to path and returns the decoded envelope of a
// successful response.
func (c *Client) post(ctx context.Context, path string, payload any) (*envelope, error) {
	header := http.Header{}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := netx.PostJSON(ctx, c.http, c.baseURL+path, payload, header)
	status := 0
	if resp != nil {
		status = resp.Status
	}
	if c.requests != nil {
		c.requests.ObserveOriginRequest(path, status, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}

	if resp.Status == common.StatusAuthRejected {
		if c.observer != nil {
			c.observer.NotifyAuthStatus(resp.Status)
		}
		return nil, common.ErrAuthRejected
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: status %d", common.ErrTransport, resp.Status)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if env.ReturnCode == nil || *env.ReturnCode != 0 {
		return nil, fmt.Errorf("%w: returnCode %s", common.ErrMalformedResponse, returnCode(env.ReturnCode))
	}
	return &env, nil
}

func returnCode(rc *int) string {
	if rc == nil {
		return "missing"
	}
	return fmt.Sprint(*rc)
}

func (c *Client) warn(ctx context.Context, msg string, args ...any) {
	if c.log != nil {
		c.log.Warn(ctx, msg, args...)
	}
}
