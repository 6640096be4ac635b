package pkgmgr

import (
	"context"

	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// pip 会在当前目录创建 build/，因此在中性目录中执行
const pipWorkDir = "/var/tmp"

var pipTemplates = Templates{
	IsInstalled: `pip freeze | grep -i '{{ .Package }}=='`,
	Install:     `pip install -U {{ .Package }}`,
	Remove:      `pip uninstall -y {{ .Package }}`,
	Search:      `pip search {{ .Package }}`,
}

// npm search 的表头在 stderr 上，需要合并后过滤
var npmTemplates = Templates{
	IsInstalled: `npm list -i {{ .Package }} | grep ' {{ .Package }}@'`,
	Install:     `npm install {{ .Package }}`,
	Remove:      `npm uninstall {{ .Package }}`,
	Search:      `npm search {{ .Package }} 2>&1 | grep -vE '^(npm |NAME).*' | sed -e 's/ =.*$//g'`,
}

var gemTemplates = Templates{
	IsInstalled: `gem list -i {{ .Package }}`,
	Install:     `gem install {{ .Package }}`,
	Remove:      `gem uninstall -x {{ .Package }}`,
	Search:      `gem search -r {{ .Package }} 2>&1 | grep -vE '^(\*\*\*|$)'`,
}

// NewPip 创建 PIP 后端
//
// 所有命令在 /var/tmp 中执行；实际安装过包之后清理 build/ 并修复
// /usr/local/lib 下的权限。
func NewPip(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	b := newCommandBackend("pip", t, logger, pipTemplates, toolUsable("pip"), opts)
	b.workDir = pipWorkDir
	b.afterAdd = pipCleanup(logger, opts.Quiet)
	return b
}

// NewNpm 创建 NPM 后端
func NewNpm(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	return newCommandBackend("npm", t, logger, npmTemplates, toolUsable("npm"), opts)
}

// NewGem 创建 RubyGems 后端
func NewGem(t transport.Transport, logger *logrus.Logger, opts Options) Backend {
	return newCommandBackend("gem", t, logger, gemTemplates, toolUsable("gem"), opts)
}

func pipCleanup(logger *logrus.Logger, quiet bool) AfterAddFunc {
	return func(ctx context.Context, t transport.Transport) error {
		if err := silentSudo(ctx, t, "rm -rf build"); err != nil {
			return err
		}
		return PipPerms(ctx, t, logger, !quiet)
	}
}

// PipPerms 恢复 /usr/local/lib 下文件和目录的正确权限
func PipPerms(ctx context.Context, t transport.Transport, logger *logrus.Logger, verbose bool) error {
	if verbose {
		logger.Infof("[%s] 恢复 /usr/local/lib 下的正确权限…", t.Host())
	}

	commands := []string{
		"find /usr/local/lib -type f -print0 | xargs -0 -n 1024 chmod u+rw,g+r,o+r",
		"find /usr/local/lib -type d -print0 | xargs -0 -n 1024 chmod u+rwx,g+rx,o+rx",
	}
	for _, cmd := range commands {
		if err := silentSudo(ctx, t, cmd); err != nil {
			return err
		}
	}
	return nil
}

// silentSudo 以 sudo 静默执行，忽略退出码，只返回通道错误
func silentSudo(ctx context.Context, t transport.Transport, cmd string) error {
	_, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: true, WarnOnly: true, Sudo: true})
	return err
}
