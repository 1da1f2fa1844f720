package proxy

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/cache"
	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/logging"
	"github.com/any-hub/any-cache/internal/remote"
	"github.com/any-hub/any-cache/internal/server"
)

// RequestRecorder 接收每个请求的最终状态码，metrics.Recorder 实现了该接口。
type RequestRecorder interface {
	RecordRequest(remote string, status int)
}

// rootLeaf 是请求路径 "/" 对应的存储叶子，避免与 remote 名本身或其它路径冲突。
const rootLeaf = "__root"

// Handler 把 HTTP 请求翻译为一次 cache.Load：先回源并写入存储，
// 上游失败时由 RemoteRoute.Control 决定是否返回本地内容。
type Handler struct {
	logger   *logrus.Logger
	cache    cache.Cache
	requests RequestRecorder
}

// NewHandler constructs a proxy handler with shared logger/cache.
// 上游连接由各 RemoteRoute.Remote 持有，在构建 Registry 时创建一次。
func NewHandler(logger *logrus.Logger, c cache.Cache, requests RequestRecorder) *Handler {
	return &Handler{
		logger:   logger,
		cache:    c,
		requests: requests,
	}
}

// Handle 执行回源/回退并把结果写回客户端，任何阶段出错都会输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx, route *server.RemoteRoute) error {
	started := time.Now()
	requestID := server.RequestID(c)
	method := c.Method()
	if method != http.MethodGet && method != http.MethodHead {
		c.Set(fiber.HeaderAllow, "GET, HEAD")
		return h.fail(c, route, requestID, fiber.StatusMethodNotAllowed, "method_not_allowed", started, nil)
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cleanPath := normalizeRequestPath(string(c.Request().URI().Path()))
	rawQuery := string(c.Request().URI().QueryString())
	k := buildKey(route, cleanPath, rawQuery)

	if route.Remote == nil {
		return h.fail(c, route, requestID, fiber.StatusInternalServerError, "remote_misconfigured", started, errors.New("remote not initialised"))
	}

	fetch := route.Remote.Fetch(cleanPath, rawQuery, fiberHeadersAsHTTP(c))
	loaded, err := h.cache.Load(ctx, k, fetch, route.Control).Await(ctx)
	if err != nil {
		status := fiber.StatusBadGateway
		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			status = fiber.StatusNotFound
		}
		return h.fail(c, route, requestID, status, "upstream_failed", started, err)
	}

	return h.serve(ctx, c, route, k, loaded, requestID, started)
}

func (h *Handler) serve(
	ctx context.Context,
	c fiber.Ctx,
	route *server.RemoteRoute,
	k key.Key,
	loaded content.Content,
	requestID string,
	started time.Time,
) error {
	size, err := loaded.Size()
	if err != nil {
		return h.fail(c, route, requestID, fiber.StatusBadGateway, "cache_read_failed", started, err)
	}
	body, err := loaded.Open(ctx)
	if err != nil {
		return h.fail(c, route, requestID, fiber.StatusBadGateway, "cache_read_failed", started, err)
	}

	if contentType := inferContentType(k); contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	c.Set("X-Any-Cache-Upstream", route.UpstreamURL.String())
	c.Status(fiber.StatusOK)
	h.logResult(route, requestID, fiber.StatusOK, started, nil)
	h.record(route, fiber.StatusOK)

	if c.Method() == http.MethodHead {
		body.Close()
		if size != content.UnknownSize {
			c.Response().Header.SetContentLength(int(size))
		}
		c.Response().SkipBody = true
		return nil
	}
	// fasthttp 在写完响应后关闭实现了 io.Closer 的 body。
	if size != content.UnknownSize {
		return c.SendStream(body, int(size))
	}
	return c.SendStream(body)
}

func (h *Handler) fail(c fiber.Ctx, route *server.RemoteRoute, requestID string, status int, code string, started time.Time, err error) error {
	h.logResult(route, requestID, status, started, err)
	h.record(route, status)
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) record(route *server.RemoteRoute, status int) {
	if h.requests != nil {
		h.requests.RecordRequest(route.Config.Name, status)
	}
}

func (h *Handler) logResult(route *server.RemoteRoute, requestID string, status int, started time.Time, err error) {
	fields := logging.RequestFields(route.Config.Name, route.Config.Domain, requestID, route.Config.Control)
	fields["action"] = "proxy"
	fields["upstream"] = route.UpstreamURL.String()
	fields["status"] = status
	fields["auth_mode"] = route.Config.AuthMode()
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

// buildKey 把 remote 名与请求路径组合成存储键；"/" 落在 __root 叶子，查询串折叠为 __qs/<sha1> 段。
func buildKey(route *server.RemoteRoute, cleanPath, rawQuery string) key.Key {
	rel := strings.Trim(cleanPath, "/")
	if rel == "" {
		rel = rootLeaf
	}
	if rawQuery == "" {
		return key.From(route.Config.Name, rel)
	}
	sum := sha1.Sum([]byte(rawQuery))
	return key.From(route.Config.Name, rel, "__qs", hex.EncodeToString(sum[:]))
}

func normalizeRequestPath(raw string) string {
	if raw == "" {
		raw = "/"
	}
	return path.Clean("/" + raw)
}

func stripQueryMarker(p string) string {
	if idx := strings.Index(p, "/__qs/"); idx >= 0 {
		return p[:idx]
	}
	return p
}

func inferContentType(k key.Key) string {
	clean := stripQueryMarker(k.String())
	switch {
	case strings.HasSuffix(clean, ".tgz"), strings.HasSuffix(clean, ".whl"), strings.HasSuffix(clean, ".jar"):
		return "application/octet-stream"
	case strings.HasSuffix(clean, ".tar.gz"), strings.HasSuffix(clean, ".tar.bz2"):
		return "application/x-tar"
	case strings.HasSuffix(clean, ".mod"), strings.HasSuffix(clean, "/@v/list"):
		return "text/plain"
	case strings.HasSuffix(clean, ".info"):
		return "application/json"
	}
	return mime.TypeByExtension(path.Ext(clean))
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	header.Del("Host")
	return header
}
