package pkgmgr

import (
	"context"

	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// 以 root 运行时 coreutils 等包的 configure 会拒绝执行，需要 FORCE_UNSAFE_CONFIGURE
var brewTemplates = Templates{
	IsInstalled: `brew list {{ .Package }} >/dev/null 2>&1`,
	Install:     `FORCE_UNSAFE_CONFIGURE=1 brew install {{ .Package }}`,
	Remove:      `brew remove {{ .Package }}`,
	Update:      `brew update`,
	Upgrade:     `brew upgrade`,
	Search:      `brew search {{ .Package }} 2>&1 | grep -v 'No formula found for' | tr ' ' '\n' | sort -u`,
}

// NewBrew 创建 Homebrew 后端
func NewBrew(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	return newCommandBackend("brew", t, logger, brewTemplates, brewUsable, opts)
}

func brewUsable(_ context.Context, _ transport.Transport, profile *platform.HostProfile) (bool, error) {
	return profile.Distribution == nil, nil
}
