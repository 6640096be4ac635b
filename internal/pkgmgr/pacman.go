package pkgmgr

import (
	"context"

	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// --needed 让 pacman 自己也跳过已安装的包
var pacmanTemplates = Templates{
	IsInstalled: `pacman -Q {{ .Package }}`,
	Install:     `pacman -S --noconfirm --needed {{ .Package }}`,
	Remove:      `pacman -Rns --noconfirm {{ .Package }}`,
	Update:      `pacman -Sy`,
	Upgrade:     `pacman -Syu --noconfirm`,
	Search:      `pacman -Ss {{ .Package }}`,
}

// NewPacman 创建 Arch Linux 的 Pacman 后端，只能通过 Manager.Use 专门调用
func NewPacman(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	return newCommandBackend("pacman", t, logger, pacmanTemplates, pacmanUsable, opts)
}

func pacmanUsable(_ context.Context, _ transport.Transport, profile *platform.HostProfile) (bool, error) {
	return profile.IsArch(), nil
}
