package pkgmgr

import (
	"context"
	"fmt"

	"github.com/alessio/shellescape"
	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// dpkg -l 对未安装的包也返回 0，只能匹配状态列
var aptTemplates = Templates{
	IsInstalled: `dpkg -l | grep -E "^(ii|rc)  {{ regexQuoteMeta .Package }} "`,
	Install:     `apt-get -q install --yes --force-yes {{ .Package }}`,
	Remove:      `apt-get -q remove --purge --yes --force-yes {{ .Package }}`,
	Update:      `apt-get update -q`,
	Upgrade:     `apt-get -u dist-upgrade -q --yes --force-yes`,
	Search:      `apt-cache search {{ .Package }}`,
}

// Apt Debian/Ubuntu 的 APT 后端，另外提供软件源管理
type Apt struct {
	*commandBackend
}

// NewApt 创建 APT 后端
func NewApt(t transport.Transport, logger *logrus.Logger, opts Options) *Apt {
	return &Apt{
		commandBackend: newCommandBackend("apt", t, logger, aptTemplates, aptUsable, opts),
	}
}

func aptUsable(_ context.Context, _ transport.Transport, profile *platform.HostProfile) (bool, error) {
	return profile.Distribution != nil, nil
}

// AddKey 下载 GPG 公钥并加入 APT 密钥库
func (a *Apt) AddKey(ctx context.Context, url string) error {
	cmd := fmt.Sprintf("wget -q -O - %s | apt-key add -", shellescape.Quote(url))
	a.logger.Infof("[%s] 添加 APT 密钥: %s", a.transport.Host(), url)

	if _, err := a.transport.Execute(ctx, cmd, transport.ExecOptions{Quiet: a.quiet, Sudo: true}); err != nil {
		return fmt.Errorf("添加 APT 密钥失败: %w", err)
	}
	return nil
}

// AddPPA 添加软件源并刷新包索引
func (a *Apt) AddPPA(ctx context.Context, src string) error {
	cmd := "add-apt-repository -y " + shellescape.Quote(src)
	a.logger.Infof("[%s] 添加软件源: %s", a.transport.Host(), src)

	if _, err := a.transport.Execute(ctx, cmd, transport.ExecOptions{Quiet: a.quiet, Sudo: true}); err != nil {
		return fmt.Errorf("添加软件源 %s 失败: %w", src, err)
	}
	return a.Update(ctx)
}

// PPAPackage 添加软件源后安装包
//
// checkPath 非空且在远程主机上存在时什么都不做，返回 false。
func (a *Apt) PPAPackage(ctx context.Context, src, checkPath string, pkgs ...string) (bool, error) {
	if checkPath != "" {
		exists, err := a.transport.PathExists(ctx, checkPath, false)
		if err != nil {
			return false, err
		}
		if exists {
			a.logger.Debugf("[%s] %s 已存在，跳过软件源 %s", a.transport.Host(), checkPath, src)
			return false, nil
		}
	}

	if err := a.AddPPA(ctx, src); err != nil {
		return false, err
	}
	return a.Add(ctx, pkgs...)
}
