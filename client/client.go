package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
	"classroom/pkg/logger"

	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	// Timeout bounds every call, the refresh call included. Zero means
	// DefaultTimeout.
	Timeout   time.Duration
	Base      http.RoundTripper
	Navigator Navigator
	Observer  Observer
}

// Client talks to the class-enrollment API. Every request goes through the
// authenticated Transport except the token refresh itself.
type Client struct {
	addr       string
	store      TokenStore
	transport  *Transport
	refresher  *RefreshCoordinator
	httpClient *http.Client
	rawClient  *http.Client
}

func NewClient(addr string, store TokenStore, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		addr:      strings.TrimRight(addr, "/"),
		store:     store,
		rawClient: &http.Client{Transport: base, Timeout: opts.Timeout},
	}
	c.refresher = NewRefreshCoordinator(store, c.exchangeRefresh, opts.Observer)
	c.transport = NewTransport(base, store, c.refresher, opts.Navigator, opts.Observer)
	c.httpClient = &http.Client{Transport: c.transport, Timeout: opts.Timeout}
	return c
}

func (c *Client) Addr() string                   { return c.addr }
func (c *Client) Store() TokenStore              { return c.store }
func (c *Client) Transport() *Transport          { return c.transport }
func (c *Client) Refresher() *RefreshCoordinator { return c.refresher }

// HTTPClient exposes the authenticated client for endpoints this package does
// not wrap.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, constraints.PathRefresh, nil, v1.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", constraints.ContentTypeJSON)

	var out v1.RefreshResponse
	if err := c.send(c.rawClient, req, &out); err != nil {
		return "", err
	}
	return out.Access, nil
}

// FilePart is one file field of a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

type multipartBody struct {
	data        []byte
	contentType string
}

func newMultipartBody(parts ...FilePart) (*multipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.Field, p.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(fw, p.Content); err != nil {
			return nil, fmt.Errorf("copy %s: %w", p.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &multipartBody{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.addr + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	return c.send(c.httpClient, req, out)
}

func (c *Client) send(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp, body)
		// The original request, not the decorated clone, names the endpoint.
		apiErr.Method = req.Method
		apiErr.Endpoint = req.URL.Path
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		logger.Error("failed to decode response",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var raw []byte
	if err := c.call(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []T{}, nil
	}
	items, err := v1.DecodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s list: %w", path, err)
	}
	return items, nil
}
