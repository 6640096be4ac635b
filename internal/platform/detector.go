// Package platform 探测远程主机的系统信息并按会话缓存
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ErrProbe 探测命令的输出无法解析
var ErrProbe = errors.New("主机探测输出无效")

// 探测命令，按顺序执行
const (
	lsbProbe       = "lsb_release -a 2>/dev/null"
	kernelProbe    = "uname -s; uname -n; uname -r; uname -v; uname -m"
	userProbe      = `echo "${USER},${HOME}"`
	parallelsProbe = "mount | grep prl_fs"
)

// Detector 远程平台探测器
type Detector struct {
	transport transport.Transport
	logger    *logrus.Logger
	silent    bool
	out       io.Writer
}

// NewDetector 创建新的平台探测器
func NewDetector(t transport.Transport, logger *logrus.Logger) *Detector {
	return &Detector{
		transport: t,
		logger:    logger,
		out:       os.Stdout,
	}
}

// SetSilent 关闭探测完成后的摘要输出
func (d *Detector) SetSilent(silent bool) {
	d.silent = silent
}

// SetOutput 设置摘要输出目标
func (d *Detector) SetOutput(w io.Writer) {
	d.out = w
}

// Detect 依次执行探测命令并构建主机信息
func (d *Detector) Detect(ctx context.Context) (*HostProfile, error) {
	profile := &HostProfile{Host: d.transport.Host()}

	d.logger.Debugf("[%s] 开始探测远程平台", profile.Host)

	if err := d.detectLSB(ctx, profile); err != nil {
		return nil, err
	}

	if err := d.detectKernel(ctx, profile); err != nil {
		return nil, err
	}

	if err := d.detectUser(ctx, profile); err != nil {
		return nil, err
	}

	if err := d.detectVirtualization(ctx, profile); err != nil {
		return nil, err
	}

	if !d.silent && d.out != nil {
		fmt.Fprintln(d.out, Summary(profile))
	}

	return profile, nil
}

// detectLSB 解析失败不是错误，而是非 LSB 系统的信号
func (d *Detector) detectLSB(ctx context.Context, profile *HostProfile) error {
	result, err := d.transport.Execute(ctx, lsbProbe, transport.ExecOptions{Quiet: true, WarnOnly: true})
	if err != nil {
		return fmt.Errorf("LSB 探测失败: %w", err)
	}

	dist, parseErr := ParseLSB(result.Output)
	if parseErr != nil {
		d.logger.Debugf("[%s] 无 LSB 信息 (%v)，假定为 OSX", profile.Host, parseErr)
		profile.OSFamily = OSX
		profile.Distribution = nil
		return nil
	}

	profile.OSFamily = LinuxLSB
	profile.Distribution = dist
	return nil
}

func (d *Detector) detectKernel(ctx context.Context, profile *HostProfile) error {
	result, err := d.transport.Execute(ctx, kernelProbe, transport.ExecOptions{Quiet: true})
	if err != nil {
		return fmt.Errorf("内核信息探测失败: %w", err)
	}

	kernel, err := parseKernel(result.Output)
	if err != nil {
		return err
	}

	profile.Kernel = kernel
	return nil
}

func (d *Detector) detectUser(ctx context.Context, profile *HostProfile) error {
	result, err := d.transport.Execute(ctx, userProbe, transport.ExecOptions{Quiet: true})
	if err != nil {
		return fmt.Errorf("用户信息探测失败: %w", err)
	}

	user, home, ok := strings.Cut(strings.TrimSpace(result.Output), ",")
	if !ok {
		return fmt.Errorf("%w: 用户信息 %q", ErrProbe, result.Output)
	}

	profile.User = user
	profile.Home = home
	return nil
}

// detectVirtualization 在未挂载宿主目录的 Parallels 虚拟机中会漏报
func (d *Detector) detectVirtualization(ctx context.Context, profile *HostProfile) error {
	result, err := d.transport.Execute(ctx, parallelsProbe, transport.ExecOptions{Quiet: true, WarnOnly: true})
	if err != nil {
		return fmt.Errorf("虚拟化探测失败: %w", err)
	}

	profile.IsParallels = result.Succeeded
	profile.IsVMware = false
	profile.IsVM = profile.IsParallels || profile.IsVMware
	return nil
}

// parseKernel 解析五行 uname 输出
func parseKernel(output string) (KernelInfo, error) {
	lines := strings.Split(strings.TrimRight(output, "\r\n"), "\n")
	if len(lines) != 5 {
		return KernelInfo{}, fmt.Errorf("%w: uname 输出应为 5 行，实际 %d 行", ErrProbe, len(lines))
	}

	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	return KernelInfo{
		SystemName: lines[0],
		NodeName:   lines[1],
		Release:    lines[2],
		Version:    lines[3],
		Machine:    lines[4],
	}, nil
}

// Summary 返回一行主机摘要
func Summary(p *HostProfile) string {
	vm := ""
	switch {
	case p.IsVMware:
		vm = "VMWare "
	case p.IsParallels:
		vm = "Parallels "
	}

	osType := "OSX"
	if p.IsLSB() {
		osType = "LSB"
	}

	return fmt.Sprintf("远程主机: %s %s %s%s, %s 位于 %s.",
		color.YellowString(osType),
		color.CyanString(p.Kernel.NodeName),
		vm,
		p.Kernel.Machine,
		color.CyanString(p.User),
		p.Home,
	)
}
