package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/cache"
	"github.com/mikey/email-crm-sync/internal/core"
)

// dataCenterEndpoints maps a data-center code to its CRM API base URL.
// Tokens are only valid against the data center the account lives in, so a
// wrong code fails authentication rather than routing.
var dataCenterEndpoints = map[string]string{
	"eu":  "https://www.zohoapis.eu/crm/v8",
	"com": "https://www.zohoapis.com/crm/v8",
	"us":  "https://www.zohoapis.com/crm/v8",
	"in":  "https://www.zohoapis.in/crm/v8",
	"au":  "https://www.zohoapis.com.au/crm/v8",
	"cn":  "https://www.zohoapis.com.cn/crm/v8",
	"jp":  "https://www.zohoapis.jp/crm/v8",
	"ca":  "https://www.zohoapis.ca/crm/v8",
}

// Config holds the settings for the Zoho CRM client
type Config struct {
	AccessToken string
	DataCenter  string
	Timeout     time.Duration

	// BaseURL overrides data-center resolution when set. Used by tests.
	BaseURL string
}

// Client talks to the Zoho CRM v8 REST API and implements core.RecordStore.
// Module and field metadata lookups are served through a TTL cache so that
// schema introspection does not cost a network round-trip per email.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metadata   *cache.MetadataCache
	logger     *zap.Logger
}

// NewClient creates a new Zoho CRM client
func NewClient(cfg Config, metadata *cache.MetadataCache, logger *zap.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, core.NewConfigurationError("zoho.access_token", "access token is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		endpoint, ok := dataCenterEndpoints[cfg.DataCenter]
		if !ok {
			return nil, core.NewConfigurationError("zoho.data_center",
				fmt.Sprintf("unknown data center %q", cfg.DataCenter))
		}
		baseURL = endpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: timeout},
		metadata:   metadata,
		logger:     logger,
	}, nil
}

// doJSON issues a request with the OAuth header set and decodes the response
// body into out when the status is successful. A 204 is reported to the
// caller as (204, nil) without touching out.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: reading response: %v", core.ErrTransient, err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, c.classifyError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// classifyError maps an API failure onto the caller-facing error taxonomy so
// the query cascade can decide between fallback and propagation.
func (c *Client) classifyError(status int, body []byte) error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)
	if apiErr.Code == "" {
		var wrapped struct {
			Data []struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"data"`
		}
		if json.Unmarshal(body, &wrapped) == nil && len(wrapped.Data) > 0 {
			apiErr.Code = wrapped.Data[0].Code
			apiErr.Message = wrapped.Data[0].Message
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", core.ErrPermission, apiErr.Message, apiErr.Code)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d %s", core.ErrTransient, status, apiErr.Code)
	case status == http.StatusBadRequest:
		switch apiErr.Code {
		case "SYNTAX_ERROR", "INVALID_QUERY", "LIMIT_EXCEEDED":
			return fmt.Errorf("%w: %s (%s)", core.ErrQueryMalformed, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%w: %s (%s)", core.ErrQueryMalformed, apiErr.Message, apiErr.Code)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", core.ErrNotFound, apiErr.Message)
	default:
		return fmt.Errorf("zoho api error: status %d code %s: %s", status, apiErr.Code, apiErr.Message)
	}
}
