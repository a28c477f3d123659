package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-200 upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == fasthttp.StatusNotFound
}

// Client is a rate limited fasthttp client bound to one upstream host.
type Client struct {
	baseURL string
	client  *fasthttp.Client
	limiter *rate.Limiter
	headers map[string]string
}

func newClient(baseURL string, limit rate.Limit, burst int, headers map[string]string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(limit, burst),
		headers: headers,
	}
}

type request struct {
	method      string
	url         string
	accept      string
	contentType string
	body        []byte
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	method := r.method
	if method == "" {
		method = fasthttp.MethodGet
	}

	req.SetRequestURI(r.url)
	req.Header.SetMethod(method)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	if r.body != nil {
		req.Header.SetContentType(r.contentType)
		req.SetBody(r.body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), URL: r.url}
	}

	// resp is released on return
	return bytes.Clone(resp.Body()), nil
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	body, err := client.do(ctx, request{url: url, accept: "application/json"})
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func postJSON[T any](ctx context.Context, client *Client, url string, payload any) (*T, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := client.do(ctx, request{
		method:      fasthttp.MethodPost,
		url:         url,
		accept:      "application/json",
		contentType: "application/json",
		body:        data,
	})
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
