package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/future"
)

// Options 描述一个 HTTP 远端的连接参数。
type Options struct {
	Upstream *url.URL
	Proxy    *url.URL
	Username string
	Password string
	Timeout  time.Duration
}

// HTTP 把上游 HTTP 服务包装成 content.AsyncContent 的生产者。
type HTTP struct {
	client   *http.Client
	upstream *url.URL
	username string
	password string
}

// New 基于共享 client 构建远端；Timeout/Proxy 只作用于派生出的副本。
func New(client *http.Client, opts Options) (*HTTP, error) {
	if opts.Upstream == nil {
		return nil, errors.New("upstream url is required")
	}
	if client == nil {
		client = NewUpstreamClient(opts.Timeout)
	}
	derived := withProxy(client, opts.Proxy)
	if opts.Timeout > 0 && derived.Timeout != opts.Timeout {
		copied := *derived
		copied.Timeout = opts.Timeout
		derived = &copied
	}
	return &HTTP{
		client:   derived,
		upstream: opts.Upstream,
		username: opts.Username,
		password: opts.Password,
	}, nil
}

// Fetch 返回一个每次调用都会重新发起 GET 的 AsyncContent。
// 响应体不会被预读，内容按调用方读取的节奏从连接上拉取。
func (h *HTTP) Fetch(path, rawQuery string, header http.Header) content.AsyncContent {
	target := h.resolve(path, rawQuery)
	return func(ctx context.Context) *future.Future[content.Content] {
		return future.Go(func() (content.Content, error) {
			return h.do(ctx, target, header)
		})
	}
}

func (h *HTTP) do(ctx context.Context, target *url.URL, header http.Header) (content.Content, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if header != nil {
		CopyHeaders(req.Header, header)
	}
	req.Header.Del("Accept-Encoding")
	req.Header.Del("Authorization")
	req.Host = target.Host
	if h.username != "" && h.password != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: target.String(), Code: resp.StatusCode}
	}
	return content.FromReader(resp.Body, resp.ContentLength), nil
}

func (h *HTTP) resolve(path, rawQuery string) *url.URL {
	clean := "/" + strings.TrimLeft(path, "/")
	base := *h.upstream
	base.Path = strings.TrimRight(base.Path, "/") + clean
	base.RawPath = ""
	base.RawQuery = rawQuery
	return &base
}
