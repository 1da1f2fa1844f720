package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/any-hub/any-cache/internal/cache"
	"github.com/any-hub/any-cache/internal/config"
	"github.com/any-hub/any-cache/internal/remote"
)

// RemoteRoute 将 Remote 配置与派生属性（超时、解析后的 Upstream/Proxy URL、
// 回退策略）聚合在一起，供代理层直接复用，避免重复解析配置。
type RemoteRoute struct {
	// Config 是用户在 config.toml 中声明的 Remote 字段副本。
	Config config.RemoteConfig
	// ListenPort 记录当前监听端口，方便日志输出。
	ListenPort int
	// Timeout 是对当前 Remote 生效的上游超时。
	Timeout time.Duration
	// UpstreamURL/ProxyURL 在构造 Registry 时提前解析完成。
	UpstreamURL *url.URL
	ProxyURL    *url.URL
	// Control 决定上游失败时是否返回本地已存储的内容。
	Control cache.Control
	// Remote 是该 Remote 的上游连接，连接池在所有请求间复用。
	Remote *remote.HTTP
}

// RemoteRegistry 提供 Host/Host:port 到 RemoteRoute 的查询能力，所有 Remote 共享同一个监听端口。
type RemoteRegistry struct {
	routes  map[string]*RemoteRoute
	ordered []*RemoteRoute
}

// NewRemoteRegistry 根据配置构建 Host 映射。调用方应在启动阶段创建一次并复用。
func NewRemoteRegistry(cfg *config.Config) (*RemoteRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &RemoteRegistry{
		routes: make(map[string]*RemoteRoute, len(cfg.Remotes)),
	}
	client := remote.NewUpstreamClient(cfg.Global.UpstreamTimeout.DurationValue())

	for _, rc := range cfg.Remotes {
		normalizedHost := normalizeDomain(rc.Domain)
		if normalizedHost == "" {
			return nil, fmt.Errorf("invalid domain for remote %s", rc.Name)
		}
		if _, exists := registry.routes[normalizedHost]; exists {
			return nil, fmt.Errorf("duplicate domain mapping detected for %s", normalizedHost)
		}

		route, err := buildRemoteRoute(cfg, rc, client)
		if err != nil {
			return nil, err
		}

		registry.routes[normalizedHost] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据 Host 或 Host:port 查找 RemoteRoute。
func (r *RemoteRegistry) Lookup(host string) (*RemoteRoute, bool) {
	if r == nil {
		return nil, false
	}

	normalizedHost, _ := normalizeHost(host)
	if normalizedHost == "" {
		return nil, false
	}

	route, ok := r.routes[normalizedHost]
	return route, ok
}

// List 返回当前注册的 RemoteRoute 列表（按配置定义的顺序）。
func (r *RemoteRegistry) List() []RemoteRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]RemoteRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// ControlFor 把配置里的策略名转换为 cache.Control。
// on-error 只在上游不可用（网络错误、5xx、429）时回退，4xx 照常返回失败。
func ControlFor(name string) (cache.Control, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.ControlOnError, "on-unavailable":
		return cache.OnErrors(remote.ErrUnavailable), nil
	case "":
		return cache.Always, nil
	default:
		return cache.ParseStandard(name)
	}
}

func buildRemoteRoute(cfg *config.Config, rc config.RemoteConfig, client *http.Client) (*RemoteRoute, error) {
	upstreamURL, err := url.Parse(rc.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream for remote %s: %w", rc.Name, err)
	}

	var proxyURL *url.URL
	if rc.Proxy != "" {
		proxyURL, err = url.Parse(rc.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy for remote %s: %w", rc.Name, err)
		}
	}

	control, err := ControlFor(rc.Control)
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", rc.Name, err)
	}

	timeout := cfg.EffectiveTimeout(rc)
	upstream, err := remote.New(client, remote.Options{
		Upstream: upstreamURL,
		Proxy:    proxyURL,
		Username: rc.Username,
		Password: rc.Password,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", rc.Name, err)
	}

	return &RemoteRoute{
		Config:      rc,
		ListenPort:  cfg.Global.ListenPort,
		Timeout:     timeout,
		UpstreamURL: upstreamURL,
		ProxyURL:    proxyURL,
		Control:     control,
		Remote:      upstream,
	}, nil
}

func normalizeDomain(domain string) string {
	host, _ := normalizeHost(domain)
	return host
}

func normalizeHost(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	host := raw
	port := 0

	if strings.Contains(raw, ":") {
		if h, p, err := net.SplitHostPort(raw); err == nil {
			host = h
			if parsedPort, err := strconv.Atoi(p); err == nil {
				port = parsedPort
			}
		} else if idx := strings.LastIndex(raw, ":"); idx > -1 && strings.Count(raw[idx+1:], ":") == 0 {
			if parsedPort, err := strconv.Atoi(raw[idx+1:]); err == nil {
				host = raw[:idx]
				port = parsedPort
			}
		}
	}

	host = strings.TrimSuffix(host, ".")
	host = strings.ToLower(host)
	return host, port
}
