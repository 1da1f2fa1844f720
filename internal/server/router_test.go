package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/config"
)

func TestRouterRoutesRequestWhenHostMatches(t *testing.T) {
	app := newTestApp(t, 5000, nil)

	req := httptest.NewRequest("GET", "http://npm.cache.local/lodash", nil)
	req.Host = "npm.cache.local"
	req.Header.Set("Host", "npm.cache.local")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 204 status, got %d (body=%s, hostHeader=%s)", resp.StatusCode, string(body), resp.Header.Get("X-Any-Cache-Host"))
	}

	if app.recorder.routeName != "npm" {
		t.Fatalf("expected npm route, got %s", app.recorder.routeName)
	}

	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestRouterReturns404WhenHostUnknown(t *testing.T) {
	app := newTestApp(t, 5000, nil)

	req := httptest.NewRequest("GET", "http://unknown.local/lodash", nil)
	req.Host = "unknown.local"
	req.Header.Set("Host", "unknown.local")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"host_unmapped"`)) {
		t.Fatalf("expected host_unmapped error, got %s", string(body))
	}
}

func TestHealthEndpointBypassesHostLookup(t *testing.T) {
	app := newTestApp(t, 5000, nil)

	req := httptest.NewRequest("GET", "http://unknown.local/-/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !bytes.Contains(body, []byte(`"ok"`)) {
		t.Fatalf("unexpected health response %d %s", resp.StatusCode, body)
	}
	if app.recorder.routeName != "" {
		t.Fatalf("diagnostics must not reach the proxy handler")
	}
}

func TestMetricsEndpointMountedWhenProvided(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("any_cache_loads_total 1\n"))
	})
	app := newTestApp(t, 5000, metrics)

	resp, err := app.Test(httptest.NewRequest("GET", "http://npm.cache.local/-/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("any_cache_loads_total")) {
		t.Fatalf("expected metrics exposition, got %s", body)
	}

	withoutMetrics := newTestApp(t, 5000, nil)
	resp, err = withoutMetrics.Test(httptest.NewRequest("GET", "http://npm.cache.local/-/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", resp.StatusCode)
	}
}

func TestNewAppRequiresDependencies(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

type testApp struct {
	*fiber.App
	recorder *proxyRecorder
}

func newTestApp(t *testing.T, port int, metrics http.Handler) *testApp {
	t.Helper()

	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:      port,
			UpstreamTimeout: config.Duration(3600),
		},
		Remotes: []config.RemoteConfig{
			{
				Name:     "npm",
				Domain:   "npm.cache.local",
				Upstream: "https://registry.npmjs.org",
				Control:  config.ControlAlways,
			},
		},
	}

	registry, err := NewRemoteRegistry(cfg)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	if _, ok := registry.Lookup("npm.cache.local"); !ok {
		t.Fatalf("registry lookup failed for npm")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := &proxyRecorder{}
	app, err := NewApp(AppOptions{
		Logger:     logger,
		Registry:   registry,
		Proxy:      recorder,
		ListenPort: port,
		Metrics:    metrics,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	return &testApp{App: app, recorder: recorder}
}

type proxyRecorder struct {
	lastRoute *RemoteRoute
	routeName string
}

func (p *proxyRecorder) Handle(c fiber.Ctx, route *RemoteRoute) error {
	p.lastRoute = route
	p.routeName = route.Config.Name
	return c.SendStatus(fiber.StatusNoContent)
}
