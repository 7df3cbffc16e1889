package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
	"github.com/lukasdemani/searcher-app/internal/platform/middleware"
)

// Limit response bodies to 10 MB to prevent memory exhaustion from
// a misbehaving server.
const maxResponseBody = 10 << 20

// Query carries the server-side snapshot parameters.
type Query struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" && q.Status != "all" {
		v.Set("status", q.Status)
	}
	return v
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
	// Transport is the innermost RoundTripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the URL analysis REST API.
type Client struct {
	base   *url.URL
	client *http.Client
}

// NewClient returns a Client whose requests pass through the request-id,
// API key, logging and metrics middlewares.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("Invalid API base URL %q.", opts.BaseURL),
			Cause:   err,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base: base,
		client: &http.Client{
			Timeout: timeout,
			Transport: middleware.Chain(opts.Transport,
				middleware.RequestID,
				middleware.APIKey(opts.APIKey),
				middleware.Logging(logger.With("component", "api")),
				middleware.Metrics,
			),
		},
	}, nil
}

// FetchPage retrieves one snapshot page.
func (c *Client) FetchPage(ctx context.Context, q Query) (*model.Page, error) {
	var page model.Page
	if err := c.do(ctx, http.MethodGet, c.endpoint("/urls", q.values()), nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []model.AnalysisRecord{}
	}
	return &page, nil
}

// GetURL retrieves a single record. Both the bare record and the
// {data, message} envelope are accepted.
func (c *Client) GetURL(ctx context.Context, id int64) (*model.AnalysisRecord, error) {
	var resp struct {
		Data *model.AnalysisRecord `json:"data"`
		model.AnalysisRecord
	}
	if err := c.do(ctx, http.MethodGet, c.endpoint(recordPath(id), nil), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data != nil {
		return resp.Data, nil
	}
	return &resp.AnalysisRecord, nil
}

// AddURL submits a URL for analysis and returns the canonical record.
func (c *Client) AddURL(ctx context.Context, rawURL string) (*model.AnalysisRecord, error) {
	normalized, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	var env model.RecordEnvelope
	if err := c.do(ctx, http.MethodPost, c.endpoint("/urls", nil), model.URLRequest{URL: normalized}, &env); err != nil {
		return nil, err
	}
	if env.Data.ID == 0 {
		return nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "The server response did not include the created record.",
		}
	}
	return &env.Data, nil
}

// AnalyzeURL triggers re-analysis of a record.
func (c *Client) AnalyzeURL(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, c.endpoint(recordPath(id)+"/analyze", nil), nil, nil)
}

// DeleteURL deletes a record.
func (c *Client) DeleteURL(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(recordPath(id), nil), nil, nil)
}

// BulkAnalyze triggers re-analysis of several records in one call.
func (c *Client) BulkAnalyze(ctx context.Context, ids []int64) error {
	return c.bulk(ctx, "/urls/bulk-analyze", ids)
}

// BulkDelete deletes several records in one call.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) error {
	return c.bulk(ctx, "/urls/bulk-delete", ids)
}

// Health checks the server's /health endpoint, which lives outside the API prefix.
func (c *Client) Health(ctx context.Context) error {
	u := *c.base
	u.Path = "/health"
	u.RawQuery = ""
	return c.do(ctx, http.MethodGet, u.String(), nil, nil)
}

func (c *Client) bulk(ctx context.Context, path string, ids []int64) error {
	if len(ids) == 0 {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "No URLs selected."}
	}
	return c.do(ctx, http.MethodPost, c.endpoint(path, nil), model.BulkRequest{IDs: ids}, nil)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func recordPath(id int64) string {
	return "/urls/" + strconv.FormatInt(id, 10)
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return &errs.AppError{Kind: errs.InvalidInput, Message: "Failed to encode request.", Cause: err}
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "Failed to build request.", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyNetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxResponseBody)

	if resp.StatusCode >= 400 {
		return rejection(resp.StatusCode, limited)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return &errs.AppError{
			Kind:           errs.ParsingFailed,
			UpstreamStatus: resp.StatusCode,
			Message:        "Failed to decode the server response.",
			Cause:          err,
		}
	}
	return nil
}

func rejection(status int, body io.Reader) error {
	var payload model.ErrorResponse
	message := http.StatusText(status)
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		}
	}
	return &errs.AppError{
		Kind:           errs.Rejected,
		UpstreamStatus: status,
		Message:        message,
	}
}

func classifyNetworkError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &errs.AppError{
			Kind:    errs.Timeout,
			Message: "The server took too long to respond.",
			Cause:   err,
		}
	}
	return &errs.AppError{
		Kind:    errs.Unreachable,
		Message: "The server could not be reached.",
		Cause:   err,
	}
}
