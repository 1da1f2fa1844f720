package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 支持的存储后端。
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageBadger = "badger"
	StorageSQLite = "sqlite"
	StorageS3     = "s3"
	StorageRedis  = "redis"
)

// 支持的缓存控制策略。
const (
	ControlAlways  = "always"
	ControlNoCache = "no-cache"
	ControlOnError = "on-error"
)

// GlobalConfig 描述全局运行时行为，所有 Remote 共享同一份参数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	MetricsEnabled  bool     `mapstructure:"MetricsEnabled"`
}

// StorageConfig 选择本地持久化后端，字段按 Type 取用。
type StorageConfig struct {
	Type           string `mapstructure:"Type"`
	Path           string `mapstructure:"Path"`
	Bucket         string `mapstructure:"Bucket"`
	Region         string `mapstructure:"Region"`
	Endpoint       string `mapstructure:"Endpoint"`
	Prefix         string `mapstructure:"Prefix"`
	ForcePathStyle bool   `mapstructure:"ForcePathStyle"`
	Addr           string `mapstructure:"Addr"`
	Password       string `mapstructure:"Password"`
	DB             int    `mapstructure:"DB"`
}

// RemoteConfig 定义单个远端的域名、上游与回退策略。
type RemoteConfig struct {
	Name     string   `mapstructure:"Name"`
	Domain   string   `mapstructure:"Domain"`
	Upstream string   `mapstructure:"Upstream"`
	Proxy    string   `mapstructure:"Proxy"`
	Control  string   `mapstructure:"Control"`
	Timeout  Duration `mapstructure:"Timeout"`
	Username string   `mapstructure:"Username"`
	Password string   `mapstructure:"Password"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig   `mapstructure:",squash"`
	Storage StorageConfig  `mapstructure:"Storage"`
	Remotes []RemoteConfig `mapstructure:"Remote"`
}

// HasCredentials 表示当前 Remote 是否配置了完整的上游凭证。
func (r RemoteConfig) HasCredentials() bool {
	return r.Username != "" && r.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (r RemoteConfig) AuthMode() string {
	if r.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}

// CredentialModes 返回所有 Remote 的鉴权模式摘要，例如 secure:credentialed。
func CredentialModes(remotes []RemoteConfig) []string {
	if len(remotes) == 0 {
		return nil
	}
	result := make([]string, len(remotes))
	for i, remote := range remotes {
		result[i] = fmt.Sprintf("%s:%s", remote.Name, remote.AuthMode())
	}
	return result
}
