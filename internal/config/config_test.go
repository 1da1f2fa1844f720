package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort == 0 {
		t.Fatalf("ListenPort 应当被解析")
	}
	if !filepath.IsAbs(cfg.Storage.Path) {
		t.Fatalf("Storage.Path 应转换为绝对路径: %s", cfg.Storage.Path)
	}
	if !cfg.Global.MetricsEnabled {
		t.Fatalf("MetricsEnabled 默认应开启")
	}
	if len(cfg.Remotes) != 2 {
		t.Fatalf("应解析两个 Remote，实际 %d", len(cfg.Remotes))
	}
	if cfg.EffectiveTimeout(cfg.Remotes[0]) != 30*time.Second {
		t.Fatalf("Remote 未设置 Timeout 时应退回全局值")
	}
	if cfg.EffectiveTimeout(cfg.Remotes[1]) != 5*time.Second {
		t.Fatalf("纯数字 Timeout 应按秒解析")
	}
	if cfg.Remotes[1].Control != ControlOnError {
		t.Fatalf("Control 应被保留: %s", cfg.Remotes[1].Control)
	}
}

func TestValidateRejectsBadRemote(t *testing.T) {
	cfgPath := testConfigPath(t, "missing.toml")

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestControlValidation(t *testing.T) {
	testCases := []struct {
		name      string
		control   string
		shouldErr bool
	}{
		{"always ok", "always", false},
		{"no-cache ok", "No-Cache", false},
		{"on-error ok", "on-error", false},
		{"unsupported", "sometimes", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Remotes[0].Control = tc.control
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for control %q", tc.control)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for control %q: %v", tc.control, err)
			}
		})
	}
}

func TestStorageValidation(t *testing.T) {
	testCases := []struct {
		name      string
		storage   StorageConfig
		shouldErr bool
	}{
		{"memory ok", StorageConfig{Type: "memory"}, false},
		{"fs needs path", StorageConfig{Type: "fs"}, true},
		{"badger ok", StorageConfig{Type: "badger", Path: "./db"}, false},
		{"s3 needs bucket", StorageConfig{Type: "s3"}, true},
		{"s3 ok", StorageConfig{Type: "s3", Bucket: "cache", Endpoint: "http://localhost:9000"}, false},
		{"redis needs addr", StorageConfig{Type: "redis"}, true},
		{"unsupported", StorageConfig{Type: "cassandra"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage = tc.storage
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for storage %+v", tc.storage)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for storage %+v: %v", tc.storage, err)
			}
		})
	}
}

func TestValidateRequiresCredentialPairs(t *testing.T) {
	cfg := validConfig()
	cfg.Remotes[0].Username = "foo"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("仅提供 Username 时应报错")
	}
}

func TestValidateRejectsDuplicateDomain(t *testing.T) {
	cfg := validConfig()
	dup := cfg.Remotes[0]
	dup.Name = "npm-mirror"
	dup.Domain = "NPM.local"
	cfg.Remotes = append(cfg.Remotes, dup)
	err := cfg.Validate()
	fieldErr, ok := err.(FieldError)
	if !ok || fieldErr.Field != "Remote[npm-mirror].Domain" {
		t.Fatalf("重复域名应返回 FieldError，实际 %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:      5000,
			UpstreamTimeout: Duration(time.Second),
		},
		Storage: StorageConfig{Type: StorageFS, Path: "./data"},
		Remotes: []RemoteConfig{
			{
				Name:     "npm",
				Domain:   "npm.local",
				Upstream: "https://registry.npmjs.org",
				Control:  ControlAlways,
			},
		},
	}
}
