// Package rest is the HTTP implementation of remote.TableClient. It speaks
// a PostgREST-like dialect:
//
//	GET    /rest/{table}?{col}=eq.{v}&order={col}.desc&limit=N
//	POST   /rest/{table}          -> 201 + row
//	PATCH  /rest/{table}/{id}     -> 200 + row
//	DELETE /rest/{table}/{id}     -> 204
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
)

// TokenSource yields the bearer token for each request. auth.Session
// implements it.
type TokenSource interface {
	Token() string
}

type Client struct {
	base    string
	tokens  TokenSource
	http    *http.Client
	origin  string
	timeout time.Duration
}

var _ remote.TableClient = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithOrigin tags writes so the backend can attribute its events.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// WithTimeout bounds each request. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		http:   http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Select(ctx context.Context, table string, q remote.Query) ([]remote.Row, error) {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Desc {
			dir = "desc"
		}
		v.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	var rows []remote.Row
	if err := c.do(ctx, "select", table, http.MethodGet, c.tableURL(table, "")+encodeQuery(v), nil, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []remote.Row{}
	}
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	var out remote.Row
	if err := c.do(ctx, "insert", table, http.MethodPost, c.tableURL(table, ""), row, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, table, id string, patch remote.Row) (remote.Row, error) {
	if patch == nil {
		patch = remote.Row{}
	}
	var out remote.Row
	if err := c.do(ctx, "update", table, http.MethodPatch, c.tableURL(table, id), patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, "delete", table, http.MethodDelete, c.tableURL(table, id), nil, nil)
}

func (c *Client) tableURL(table, id string) string {
	u := c.base + "/rest/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func encodeQuery(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, table, method, u string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return common.NewRemoteError(op, table, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+tok)
	}
	if c.origin != "" {
		req.Header.Set(common.OriginHeader, c.origin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return common.NewRemoteError(op, table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.NewRemoteError(op, table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(op, table, resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.NewRemoteError(op, table, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// mapStatus translates an HTTP failure into the error the hooks act on.
func mapStatus(op, table string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrUnauthenticated, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrValidation, msg)
	default:
		return common.NewRemoteError(op, table, fmt.Errorf("status %d: %s", status, msg))
	}
}
