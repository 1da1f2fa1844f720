package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var supportedStorageTypes = map[string]struct{}{
	StorageMemory: {},
	StorageFS:     {},
	StorageBadger: {},
	StorageSQLite: {},
	StorageS3:     {},
	StorageRedis:  {},
}

const supportedStorageTypeList = "memory|fs|badger|sqlite|s3|redis"

var supportedControls = map[string]struct{}{
	ControlAlways:  {},
	ControlNoCache: {},
	ControlOnError: {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	if len(c.Remotes) == 0 {
		return errors.New("至少需要配置一个 Remote")
	}

	seenNames := map[string]struct{}{}
	seenDomains := map[string]string{}
	for i := range c.Remotes {
		remote := &c.Remotes[i]
		if remote.Name == "" {
			return newFieldError("Remote[].Name", "不能为空")
		}
		if strings.Contains(remote.Name, "/") {
			return newFieldError(remoteField(remote.Name, "Name"), "不允许包含 /")
		}
		if _, exists := seenNames[remote.Name]; exists {
			return newFieldError(remoteField(remote.Name, "Name"), "重复")
		}
		seenNames[remote.Name] = struct{}{}

		if err := validateDomain(remote.Domain); err != nil {
			return fmt.Errorf("%s: %w", remoteField(remote.Name, "Domain"), err)
		}
		domain := strings.ToLower(remote.Domain)
		if owner, exists := seenDomains[domain]; exists {
			return newFieldError(remoteField(remote.Name, "Domain"), "与 "+owner+" 重复")
		}
		seenDomains[domain] = remote.Name

		control := strings.ToLower(strings.TrimSpace(remote.Control))
		if _, ok := supportedControls[control]; !ok {
			return newFieldError(remoteField(remote.Name, "Control"), "仅支持 always/no-cache/on-error")
		}
		remote.Control = control

		if remote.Timeout.DurationValue() < 0 {
			return newFieldError(remoteField(remote.Name, "Timeout"), "不能为负数")
		}
		if (remote.Username == "") != (remote.Password == "") {
			return newFieldError(remoteField(remote.Name, "Username/Password"), "必须同时提供或同时留空")
		}
		if err := validateUpstream(remote.Upstream); err != nil {
			return fmt.Errorf("%s: %w", remoteField(remote.Name, "Upstream"), err)
		}
		if remote.Proxy != "" {
			if err := validateUpstream(remote.Proxy); err != nil {
				return fmt.Errorf("%s: %w", remoteField(remote.Name, "Proxy"), err)
			}
		}
	}

	return nil
}

func (s *StorageConfig) validate() error {
	storageType := strings.ToLower(strings.TrimSpace(s.Type))
	if _, ok := supportedStorageTypes[storageType]; !ok {
		return newFieldError("Storage.Type", "仅支持 "+supportedStorageTypeList)
	}
	s.Type = storageType

	switch storageType {
	case StorageFS, StorageBadger, StorageSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return newFieldError("Storage.Path", "不能为空")
		}
	case StorageS3:
		if s.Bucket == "" {
			return newFieldError("Storage.Bucket", "s3 存储必须指定")
		}
		if s.Endpoint != "" {
			if err := validateUpstream(s.Endpoint); err != nil {
				return fmt.Errorf("Storage.Endpoint: %w", err)
			}
		}
	case StorageRedis:
		if s.Addr == "" {
			return newFieldError("Storage.Addr", "redis 存储必须指定")
		}
		if s.DB < 0 {
			return newFieldError("Storage.DB", "不能为负数")
		}
	}
	return nil
}

func validateDomain(domain string) error {
	if domain == "" {
		return errors.New("Domain 不能为空")
	}
	if strings.Contains(domain, "/") {
		return errors.New("Domain 不允许包含路径")
	}
	if strings.Contains(domain, " ") {
		return errors.New("Domain 不允许包含空格")
	}
	if strings.HasPrefix(domain, "http") {
		return errors.New("Domain 不应包含协议头")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}

// EffectiveTimeout 返回特定 Remote 生效的上游超时，未覆盖时回退至全局值。
func (c *Config) EffectiveTimeout(r RemoteConfig) time.Duration {
	if r.Timeout.DurationValue() > 0 {
		return r.Timeout.DurationValue()
	}
	return c.Global.UpstreamTimeout.DurationValue()
}
