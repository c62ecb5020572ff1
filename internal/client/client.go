// Package client is a typed Go client for the groupledger HTTP API.
//
// Transport failures wrap errs.ErrNetworkFailure. API errors are returned as
// *APIError, which unwraps to the matching errs sentinel so callers can use errors.Is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userID     uuid.UUID
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBearerToken authenticates every request with an Authorization header.
func WithBearerToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserID authenticates with the X-User-ID header, for servers running without token verification.
func WithUserID(id uuid.UUID) Option {
	return func(cl *Client) {
		cl.userID = id
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status           int
	Code             string
	Message          string
	TransactionCount *int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groupledger: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the sentinel matching Code, or nil for codes the client does not know.
func (e *APIError) Unwrap() error { return codeErrors[e.Code] }

var codeErrors = map[string]error{
	"unauthenticated":    errs.ErrUnauthenticated,
	"protected_role":     errs.ErrProtectedRole,
	"not_a_member":       errs.ErrNotAMember,
	"forbidden":          errs.ErrForbidden,
	"not_found":          errs.ErrNotFound,
	"version_mismatch":   errs.ErrVersionMismatch,
	"in_use_by_members":  errs.ErrInUseByMembers,
	"pending_resolution": errs.ErrHasTransactions,
	"conflict":           errs.ErrConflict,
	"no_target_selected": errs.ErrNoTargetSelected,
	"immutable":          errs.ErrImmutable,
	"mixed_currency":     errs.ErrMixedCurrency,
	"unprocessable":      errs.ErrUnprocessable,
	"validation_error":   errs.ErrInvalid,
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.userID != uuid.Nil:
		req.Header.Set("X-User-ID", c.userID.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, errs.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %v: %w", method, path, err, errs.ErrNetworkFailure)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error            string `json:"error"`
		Code             string `json:"code"`
		TransactionCount *int   `json:"transactionCount"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code, apiErr.Message, apiErr.TransactionCount = body.Code, body.Error, body.TransactionCount
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Code == "" {
		apiErr.Code = fallbackCode(resp.StatusCode)
	}
	return apiErr
}

// fallbackCode covers responses without a JSON body, such as a proxy's 404.
func fallbackCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "http_" + fmt.Sprint(status)
}

// Code returns the API error code carried by err, or "" when err is not an API error.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func idPath(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(fmt.Sprint(p)))
	}
	return b.String()
}
