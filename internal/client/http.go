package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/unicorns/internal/presence"
	"github.com/alfredjeanlab/unicorns/internal/view"
)

// maxStreamLine bounds one SSE data line; network frames can be large.
const maxStreamLine = 16 << 20

// viewerHeader must match the header the server reads viewer names from.
const viewerHeader = "X-Unicorns-Viewer"

// HTTPClient implements DashboardClient using the dashboard HTTP/JSON API.
type HTTPClient struct {
	// Viewer, when set, names this client in the server's viewer roster.
	Viewer string

	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- State ---

func (c *HTTPClient) State(ctx context.Context) (*State, error) {
	var st State
	if err := c.doJSON(ctx, http.MethodGet, "/v1/state", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) Datasets(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/datasets", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// --- Frames ---

func (c *HTTPClient) Views(ctx context.Context) (map[view.Name]*view.Frame, error) {
	var frames map[view.Name]*view.Frame
	if err := c.doJSON(ctx, http.MethodGet, "/v1/views", nil, &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

func (c *HTTPClient) View(ctx context.Context, name view.Name) (*view.Frame, error) {
	var f view.Frame
	if err := c.doJSON(ctx, http.MethodGet, "/v1/views/"+url.PathEscape(string(name)), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *HTTPClient) SetScale(ctx context.Context, name view.Name, scale view.ScaleType) (*view.Frame, error) {
	body := map[string]string{"scale": string(scale)}
	var f view.Frame
	if err := c.doJSON(ctx, http.MethodPost, "/v1/views/"+url.PathEscape(string(name))+"/scale", body, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// --- Events and gestures ---

func (c *HTTPClient) Emit(ctx context.Context, topic string, payload any) (*EmitResult, error) {
	body := struct {
		Topic   string `json:"topic"`
		Payload any    `json:"payload,omitempty"`
	}{topic, payload}
	var res EmitResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Interact(ctx context.Context, in view.Interaction) (*State, error) {
	var st State
	if err := c.doJSON(ctx, http.MethodPost, "/v1/interactions", in, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) Search(ctx context.Context, query string) (*SearchResult, error) {
	var res SearchResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/network/search", map[string]string{"query": query}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Stream ---

// Stream opens GET /v1/events/stream and calls fn for every event. It
// returns nil when ctx is cancelled and fn's error when fn fails.
func (c *HTTPClient) Stream(ctx context.Context, req *StreamRequest, fn func(StreamEvent) error) error {
	path := "/v1/events/stream"
	if req != nil && len(req.Topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(req.Topics, ",")}}.Encode()
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	hreq.Header.Set("Accept", "text/event-stream")
	if req != nil && req.LastEventID != "" {
		hreq.Header.Set("Last-Event-ID", req.LastEventID)
	}
	c.authorize(hreq)

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}

	err = readSSE(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readSSE parses an event stream. Comment lines (keepalives) are skipped.
func readSSE(r io.Reader, fn func(StreamEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	var evt StreamEvent
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 || evt.Topic != "" {
				evt.Data = json.RawMessage(bytes.Clone(data.Bytes()))
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = StreamEvent{}
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// --- Viewers ---

func (c *HTTPClient) Viewers(ctx context.Context, stale time.Duration) ([]presence.Entry, error) {
	path := "/v1/viewers"
	if stale > 0 {
		path += "?" + url.Values{"stale": {stale.String()}}.Encode()
	}
	var resp struct {
		Viewers []presence.Entry `json:"viewers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Viewers, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func decodeAPIError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

// authorize sets the bearer token and viewer name headers.
func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.Viewer != "" {
		req.Header.Set(viewerHeader, c.Viewer)
	}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
