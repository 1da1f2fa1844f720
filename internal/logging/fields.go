package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 remote/domain/请求 ID 字段，供 HTTP 前端日志复用。
func RequestFields(remote, domain, requestID, control string) logrus.Fields {
	return logrus.Fields{
		"remote":     remote,
		"domain":     domain,
		"request_id": requestID,
		"control":    control,
	}
}

// LoadFields 记录一次缓存加载的 key、结果与耗时。
func LoadFields(key, outcome string, elapsed time.Duration) logrus.Fields {
	return logrus.Fields{
		"key":        key,
		"outcome":    outcome,
		"elapsed_ms": elapsed.Milliseconds(),
	}
}
