// Package pokerapi is the typed HTTP client for the MintYourAgent poker and
// launch API. All endpoint paths, payload shapes, and header names are pinned
// contracts with the server. Response decoding happens here and nowhere else;
// the rest of the program sees typed structs only.
package pokerapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/decred/slog"
)

// APIError is a definitive server answer (HTTP 4xx or an error envelope).
// It is never retried.
type APIError struct {
	Status  int
	Code    string
	Message string
	Hint    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// envelope is the server's common response wrapper. Success defaults to the
// HTTP status when the field is absent.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Hint    string `json:"hint"`
}

// Config carries the client's knobs. Zero values fall back to defaults.
type Config struct {
	BaseURL       string
	APIKey        string // enables HMAC request signing when set
	UserAgent     string
	CorrelationID string

	Timeout         time.Duration
	MaxAttempts     uint64
	InitialInterval time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  slog.Logger
}

func New(cfg Config, log slog.Logger) *Client {
	if log == nil {
		log = slog.Disabled
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mya-go"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// canonicalJSON re-encodes a payload with object keys sorted at every level,
// so the request signature is stable regardless of struct field order.
func canonicalJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return marshalCanonical(v)
}

func marshalCanonical(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := marshalCanonical(e)
			if err != nil {
				return nil, err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// signRequest computes the HMAC-SHA256 request signature over
// "timestamp:canonical(payload)" keyed by the API key.
func (c *Client) signRequest(body []byte, ts int64) (string, error) {
	canon, err := canonicalJSON(body)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.APIKey))
	fmt.Fprintf(mac, "%d:", ts)
	mac.Write(canon)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxAttempts-1), ctx)
}

// do issues one API call with bounded retry. Network failures and 5xx are
// retried; 4xx and decode failures are not. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	raw, err := backoff.RetryWithData(func() ([]byte, error) {
		return c.once(ctx, method, u, body)
	}, c.newBackoff(ctx))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: http.StatusOK, Code: "INVALID_RESPONSE", Message: "invalid response body"}
	}
	if env.Success != nil && !*env.Success || env.Error != "" {
		return &APIError{Status: http.StatusOK, Code: env.Code, Message: orUnknown(env.Error), Hint: env.Hint}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", c.cfg.CorrelationID)
	}
	if c.cfg.APIKey != "" && body != nil {
		ts := time.Now().Unix()
		sig, err := c.signRequest(body, ts)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Signature", sig)
	}

	c.log.Debugf("api: %s %s", method, u)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugf("api: transient failure, will retry: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Client errors are definitive; retrying cannot fix them.
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
			apiErr.Code = env.Code
			apiErr.Hint = env.Hint
		}
		return nil, backoff.Permanent(apiErr)
	}
	if resp.StatusCode >= 500 {
		c.log.Debugf("api: server error %d, will retry", resp.StatusCode)
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	}
	return raw, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}
