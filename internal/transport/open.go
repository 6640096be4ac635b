package transport

import (
	"context"

	"github.com/sirupsen/logrus"
)

// IsLocalHost 判断主机标识是否指向本机
func IsLocalHost(host string) bool {
	switch host {
	case "", "local", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Open 根据主机标识选择本地或 SSH 通道
func Open(ctx context.Context, host string, cfg Config, logger *logrus.Logger) (Connection, error) {
	if IsLocalHost(host) {
		logger.Debug("使用本地执行通道")
		return NewLocal(cfg, logger), nil
	}

	return DialSSH(ctx, host, cfg, logger)
}
