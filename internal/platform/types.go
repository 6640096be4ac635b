package platform

import (
	"path"
	"strconv"
	"strings"
)

// OSFamily 决定适用哪一类包管理后端
type OSFamily int

const (
	Unknown  OSFamily = iota // 未识别
	LinuxLSB                 // 提供 LSB 信息的 Linux
	OSX                      // 无 LSB 信息时假定为 OSX
)

// String 返回系统族的字符串表示
func (f OSFamily) String() string {
	switch f {
	case LinuxLSB:
		return "LSB"
	case OSX:
		return "OSX"
	default:
		return "unknown"
	}
}

// Distribution LSB 发行版信息
type Distribution struct {
	ID          string // 发行版标识 (Ubuntu, Debian, Arch ...)
	Release     string // 版本号 (14.04)
	Codename    string // 代号 (trusty)
	Description string
}

// KernelInfo uname 信息
type KernelInfo struct {
	SystemName string // uname -s
	NodeName   string // uname -n
	Release    string // uname -r
	Version    string // uname -v
	Machine    string // uname -m
}

// HostProfile 远程主机的事实快照，构建后不可变
type HostProfile struct {
	Host         string
	OSFamily     OSFamily
	Distribution *Distribution // 仅 LinuxLSB 时非空
	Kernel       KernelInfo
	User         string
	Home         string

	// 虚拟化检测是尽力而为的启发式结果
	IsVM        bool
	IsParallels bool
	IsVMware    bool // 未实现，恒为 false
}

// IsLSB 是否为提供 LSB 信息的 Linux
func (p *HostProfile) IsLSB() bool {
	return p.Distribution != nil
}

// IsOSX 是否被判定为 OSX
func (p *HostProfile) IsOSX() bool {
	return p.OSFamily == OSX
}

// IsUbuntu 是否为 Ubuntu
func (p *HostProfile) IsUbuntu() bool {
	return p.Distribution != nil && p.Distribution.IsUbuntu()
}

// IsDebian 是否为 Debian 系发行版
func (p *HostProfile) IsDebian() bool {
	return p.Distribution != nil && p.Distribution.IsDebian()
}

// IsArch 是否为 Arch Linux
func (p *HostProfile) IsArch() bool {
	return p.Distribution != nil && p.Distribution.IsArch()
}

// IsFreeBSD 是否为 FreeBSD
func (p *HostProfile) IsFreeBSD() bool {
	return strings.EqualFold(p.Kernel.SystemName, "FreeBSD")
}

// IsBSD 是否为 BSD 系统
func (p *HostProfile) IsBSD() bool {
	return strings.HasSuffix(strings.ToLower(p.Kernel.SystemName), "bsd")
}

// Arch 返回机器架构
func (p *HostProfile) Arch() string {
	return p.Kernel.Machine
}

// MajorRelease 返回发行版主版本号，无法解析时为 -1
func (p *HostProfile) MajorRelease() int {
	if p.Distribution == nil {
		return -1
	}
	major, _, _ := strings.Cut(p.Distribution.Release, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return -1
	}
	return n
}

// Tilde 返回远程家目录下的路径
func (p *HostProfile) Tilde(elem ...string) string {
	return path.Join(append([]string{p.Home}, elem...)...)
}
