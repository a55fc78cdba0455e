package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/weapi"
)

const (
	pageUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36 Edg/108.0.1462.54"

	// maxBody caps how much of an upstream response is read.
	maxBody = 32 << 20
)

// Client issues requests to the catalog service.
//
// Every call is bounded by a per-call timeout and waits on a shared rate limiter.
type Client struct {
	conf       shared.CatalogConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient creates a catalog client. A nil httpClient uses [http.DefaultClient].
//
// A zero requests_per_second disables throttling.
func NewClient(conf shared.CatalogConfig, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if conf.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(conf.RequestsPerSecond), max(1, conf.MaxConcurrency))
	}

	return &Client{conf: conf, httpClient: httpClient, limiter: limiter, logger: logger}
}

// call describes one upstream request.
type call struct {
	method  string
	url     string
	form    url.Values
	headers http.Header
	timeout time.Duration
}

// do performs c and returns the response body.
//
// Transport failures, timeouts and non-2xx statuses are reported as [shared.ErrUpstreamUnavailable].
func (cl *Client) do(ctx context.Context, c call) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if cl.limiter != nil {
		if err := cl.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrUpstreamUnavailable, err)
		}
	}

	var body io.Reader
	if c.form != nil {
		body = strings.NewReader(c.form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	cl.logger.Debug("upstream call", "method", c.method, "url", c.url, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstreamUnavailable, err)
	}
	return data, nil
}

// getJSON performs a GET and validates the body as JSON.
func (cl *Client) getJSON(ctx context.Context, endpoint string, headers http.Header, timeout time.Duration) (gjson.Result, error) {
	data, err := cl.do(ctx, call{method: http.MethodGet, url: endpoint, headers: headers, timeout: timeout})
	if err != nil {
		return gjson.Result{}, err
	}
	return parseJSON(data)
}

// postEnvelope POSTs an encrypted form body and validates the response as JSON.
func (cl *Client) postEnvelope(ctx context.Context, endpoint string, env weapi.Envelope, headers http.Header, timeout time.Duration) (gjson.Result, error) {
	data, err := cl.do(ctx, call{method: http.MethodPost, url: endpoint, form: env.Form(), headers: headers, timeout: timeout})
	if err != nil {
		return gjson.Result{}, err
	}
	return parseJSON(data)
}

func parseJSON(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: response is not JSON", shared.ErrMalformedUpstream)
	}
	return gjson.ParseBytes(data), nil
}

// apiHeaders are sent with detail, playlist and lyric calls.
func (cl *Client) apiHeaders() http.Header {
	return http.Header{
		"Referer":      {"https://y.music.163.com/"},
		"Origin":       {"https://y.music.163.com/"},
		"Authority":    {"music.163.com"},
		"User-Agent":   {cl.conf.UserAgent},
		"Content-Type": {"application/x-www-form-urlencoded"},
	}
}

// searchHeaders mimic the catalog's own search page.
func (cl *Client) searchHeaders() http.Header {
	return http.Header{
		"Authority":       {"music.163.com"},
		"User-Agent":      {cl.conf.UserAgent},
		"Content-Type":    {"application/x-www-form-urlencoded"},
		"Accept":          {"*/*"},
		"Origin":          {"https://music.163.com"},
		"Sec-Fetch-Site":  {"same-origin"},
		"Sec-Fetch-Mode":  {"cors"},
		"Sec-Fetch-Dest":  {"empty"},
		"Referer":         {"https://music.163.com/search/"},
		"Accept-Language": {"zh-CN,zh;q=0.9"},
	}
}

func pageHeaders() http.Header {
	return http.Header{
		"Referer":    {"https://music.163.com/"},
		"User-Agent": {pageUserAgent},
	}
}
