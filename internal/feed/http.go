package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
)

// maxBody caps how much of a response is read. 1000 records of a few KiB
// each fit comfortably.
const maxBody = 32 << 20

// HTTPTransport talks to the JSON gateway.
type HTTPTransport struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPTransport builds a transport rooted at endpoint. A nil client uses
// one with DefaultTimeout.
func NewHTTPTransport(endpoint string, client *http.Client) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("feed: endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("feed: endpoint %q: scheme must be http or https", endpoint)
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPTransport{base: u, client: client}, nil
}

// Bootstrap implements Transport. An empty body reads as an empty category.
func (t *HTTPTransport) Bootstrap(ctx context.Context, category string) (BootstrapResult, error) {
	var res BootstrapResult
	empty, err := t.get(ctx, "/v1/live/"+category+"/bootstrap", nil, &res)
	if err != nil {
		return BootstrapResult{}, err
	}
	if empty {
		return BootstrapResult{Empty: true}, nil
	}
	return res, nil
}

// Tail implements Transport.
func (t *HTTPTransport) Tail(ctx context.Context, req TailRequest) (Page, error) {
	q := url.Values{}
	if !req.Cursor.IsZero() {
		q.Set("after", cursor.Encode(req.Cursor))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	var page Page
	empty, err := t.get(ctx, "/v1/live/"+req.Category, q, &page)
	if err != nil {
		return Page{}, err
	}
	if empty {
		return emptyPage(req.Cursor), nil
	}
	return page, nil
}

// Close implements Transport.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// get fetches path into out. It reports empty=true for 304 or a blank
// success body.
func (t *HTTPTransport) get(ctx context.Context, path string, q url.Values, out any) (empty bool, err error) {
	u := t.base.JoinPath(path)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusNotModified {
		return true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, statusError(resp.StatusCode, body)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return false, nil
}

func statusError(code int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch eb.Code {
	case "unsupported_category":
		return fmt.Errorf("%w: %s", ErrUnsupportedCategory, msg)
	case "invalid_cursor":
		return fmt.Errorf("%w: %w: %s", ErrTransport, cursor.ErrInvalidCursor, msg)
	}
	return fmt.Errorf("%w: http %d: %s", ErrTransport, code, msg)
}
