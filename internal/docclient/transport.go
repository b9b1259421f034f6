package docclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
)

// HTTPTransport posts envelopes to a dispatcher running in another process.
type HTTPTransport struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTransport{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, body []byte) (int, []byte, error) {
	if t.BaseURL == "" {
		return 0, nil, apperrors.Configuration("MONGODB_API_URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/mongodb-api", bytes.NewReader(body))
	if err != nil {
		return 0, nil, apperrors.Configuration("invalid MONGODB_API_URL: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.HTTP.Do(req)
	if err != nil {
		return 0, nil, apperrors.Upstream(err, "document API unreachable")
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, apperrors.Upstream(err, "read document API reply")
	}
	return resp.StatusCode, raw, nil
}

// LocalTransport hands envelopes to an in-process dispatcher. Replies are
// encoded to JSON so callers see the same shapes as over HTTP.
type LocalTransport struct {
	D *dispatch.Dispatcher
}

func NewLocalTransport(d *dispatch.Dispatcher) *LocalTransport {
	return &LocalTransport{D: d}
}

func (t *LocalTransport) RoundTrip(ctx context.Context, body []byte) (int, []byte, error) {
	status, env := t.D.Serve(ctx, body)
	raw, err := json.Marshal(env)
	if err != nil {
		return 0, nil, apperrors.Upstream(err, "encode dispatcher reply")
	}
	return status, raw, nil
}
