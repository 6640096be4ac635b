package pkgmgr

import (
	"context"

	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	portsSudoPath       = "/usr/local/bin/sudo"
	portsPortmasterPath = "/usr/local/sbin/portmaster"
)

// grep -Fx 按整行精确匹配 origin，避免包名中的正则字符
var portsTemplates = Templates{
	IsInstalled: `portmaster -l --list-origins | grep -Fx {{ shellQuote .Package }} >/dev/null 2>&1`,
	Install:     `portmaster {{ .Package }}`,
	Remove:      `pkg_delete -rf {{ .Package }}`,
	Update:      `portsnap update`,
	Upgrade:     `portmaster -Da`,
	Search:      `find /usr/ports -maxdepth 2 -type d -name '*{{ .Package }}*' | sed -e 's#/usr/ports/##g'`,
}

// NewPorts 创建 FreeBSD ports 后端，只能通过 Manager.Use 专门调用
func NewPorts(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	return newCommandBackend("ports", t, logger, portsTemplates, portsUsable(logger), opts)
}

// portsUsable 非 FreeBSD 主机返回 false；缺少 sudo 或 portmaster 时返回 PreconditionError
func portsUsable(logger *logrus.Logger) UsableFunc {
	return func(ctx context.Context, t transport.Transport, profile *platform.HostProfile) (bool, error) {
		if !profile.IsFreeBSD() {
			return false, nil
		}

		required := []*PreconditionError{
			{Backend: "ports", Tool: "sudo", Path: portsSudoPath, Fix: "security/sudo"},
			{Backend: "ports", Tool: "portmaster", Path: portsPortmasterPath, Fix: "ports-mgmt/portmaster"},
		}

		for _, req := range required {
			// sudo 本身可能缺失，检查时不能使用 sudo
			exists, err := t.PathExists(ctx, req.Path, false)
			if err != nil {
				return false, err
			}
			if !exists {
				logger.Errorf("[%s] %v", t.Host(), req)
				return false, req
			}
		}

		return true, nil
	}
}
