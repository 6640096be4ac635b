// Package pkgmgr 在远程主机上统一管理软件包
//
// 每个 Backend 把 is_installed/add/remove/update/upgrade/search
// 映射为一组 shell 命令模板；Manager 根据主机的 HostProfile 选择后端。
package pkgmgr

import (
	"context"
	"iter"
	"time"

	"github.com/bbq191/sparks-go/internal/platform"
)

// Operations 包管理操作，Manager 与 Backend 都实现该接口
type Operations interface {
	// IsInstalled 检查包是否已安装
	IsInstalled(ctx context.Context, name string) (bool, error)

	// Add 安装尚未安装的包，返回是否实际安装了任何包
	Add(ctx context.Context, pkgs ...string) (bool, error)

	// Remove 删除已安装的包，未安装的包直接跳过
	Remove(ctx context.Context, pkgs ...string) error

	// Update 刷新包索引
	Update(ctx context.Context) error

	// Upgrade 升级全部已安装的包
	Upgrade(ctx context.Context) error

	// Search 依次搜索每个包，结果按输入顺序逐个产出
	Search(ctx context.Context, pkgs ...string) iter.Seq[SearchResult]
}

// Backend 包管理后端
type Backend interface {
	Operations

	// Name 返回后端名称
	Name() string

	// Usable 判断后端能否在该主机上使用
	//
	// 缺少必要工具而无法继续时返回 *PreconditionError。
	Usable(ctx context.Context, profile *platform.HostProfile) (bool, error)
}

// SearchResult 单个包的搜索结果
type SearchResult struct {
	Package   string
	Output    string
	Succeeded bool
	Err       error
}

// EventType 安装事件类型
type EventType int

const (
	EventStart     EventType = iota // 开始处理
	EventInstalled                  // 安装成功
	EventSkipped                    // 已安装，跳过
	EventFailed                     // 安装失败
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventInstalled:
		return "installed"
	case EventSkipped:
		return "skipped"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event 安装过程中产生的事件
type Event struct {
	Type     EventType
	Host     string
	Backend  string
	Package  string
	Error    error
	Duration time.Duration
}

// Observer 接收安装事件，Notify 在安装协程中同步调用
type Observer interface {
	Notify(event Event)
}

// Options 后端构造选项
type Options struct {
	Quiet    bool     // 安装命令不回显输出
	Observer Observer // 可为 nil
}
