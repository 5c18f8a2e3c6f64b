package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrRemote marks transient remote failures: timeouts, rate limits,
// server errors, unreachable network. Mutating callers fall back to the
// outbox when errors.Is(err, ErrRemote).
var ErrRemote = errors.New("remote unavailable")

// Client talks to the remote backend: POST {action,...} mutations that
// answer {ok:bool,...}, and GET ?action=... reads that answer either a
// bare JSON array or an {items:[...]}/{data:[...]} envelope.
type Client struct {
	BaseURL  string
	DeviceID string
	TenantID string
	Secret   string

	HTTPClient *http.Client
	Logger     *zap.Logger

	// MaxRetries bounds backoff retries for retryable status classes.
	MaxRetries uint64

	now func() time.Time
}

// NewClient creates a remote client with a bounded request timeout.
func NewClient(baseURL, deviceID, secret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    baseURL,
		DeviceID:   deviceID,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
		MaxRetries: 4,
		now:        time.Now,
	}
}

// MutateResponse is the remote's answer to a mutation POST.
type MutateResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Extra json.RawMessage `json:"-"`
}

// Mutate POSTs {action, ...payload} and requires an {ok:true} JSON body.
// Non-2xx statuses, non-JSON bodies, and ok:false are all failures;
// transient ones are retried with exponential backoff and then wrapped
// in ErrRemote so callers can queue.
func (c *Client) Mutate(ctx context.Context, action string, payload map[string]any) (*MutateResponse, error) {
	body := map[string]any{"action": action}
	for k, v := range payload {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", action, err)
	}

	var resp *MutateResponse
	err = c.withRetry(ctx, action, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if err := c.authorize(req); err != nil {
			return backoff.Permanent(err)
		}

		data, err := c.do(req)
		if err != nil {
			return err
		}

		var r MutateResponse
		if err := json.Unmarshal(data, &r); err != nil {
			// A non-JSON body from the mutation endpoint is a broken
			// deploy or a proxy error page; treat as transient.
			return fmt.Errorf("%w: non-JSON response to %s", ErrRemote, action)
		}
		if !r.OK {
			return backoff.Permanent(fmt.Errorf("remote rejected %s: %s", action, r.Error))
		}
		r.Extra = data
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Fetch GETs ?action=<name>&params and decodes the row array, accepting
// either a bare array or an enveloped one.
func (c *Client) Fetch(ctx context.Context, action string, params url.Values) ([]json.RawMessage, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var rows []json.RawMessage
	err = c.withRetry(ctx, action, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := c.authorize(req); err != nil {
			return backoff.Permanent(err)
		}

		data, err := c.do(req)
		if err != nil {
			return err
		}

		decoded, err := DecodeRows(data)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("decoding %s response: %w", action, err))
		}
		rows = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecodeRows accepts a bare JSON array or an {items:[...]}/{data:[...]}
// envelope and returns the raw rows.
func DecodeRows(data []byte) ([]json.RawMessage, error) {
	var bare []json.RawMessage
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
		Data  []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("neither array nor envelope: %w", err)
	}
	if envelope.Items != nil {
		return envelope.Items, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return nil, fmt.Errorf("envelope has no items or data array")
}

func (c *Client) authorize(req *http.Request) error {
	if c.Secret == "" {
		return nil
	}
	token, err := signDeviceToken(c.Secret, c.DeviceID, c.TenantID, c.now())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// do executes a request and returns the body, classifying the status:
// 408/429/5xx are transient (retryable), other non-2xx are permanent.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemote, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("remote returned status %d", resp.StatusCode))
	}
}

// withRetry runs op with exponential backoff; only errors not marked
// permanent are retried, and the retry count is bounded.
func (c *Client) withRetry(ctx context.Context, action string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 8 * time.Second

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil && attempt <= int(c.MaxRetries) {
			var perm *backoff.PermanentError
			if !errors.As(err, &perm) {
				c.Logger.Warn("remote call failed, retrying",
					zap.String("action", action),
					zap.Int("attempt", attempt),
					zap.Error(err))
			}
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.MaxRetries), ctx))
}
