package pkgmgr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform 当前主机没有适用的后端
	ErrUnsupportedPlatform = errors.New("当前平台不支持该操作")

	// ErrNotImplemented 后端未提供该操作
	ErrNotImplemented = errors.New("尚未实现")

	// ErrPrecondition 后端依赖的工具缺失，包管理完全无法进行
	ErrPrecondition = errors.New("前置条件不满足")

	// ErrUnknownBackend 未注册的后端名称
	ErrUnknownBackend = errors.New("未知的包管理后端")

	// ErrInvalidPackageName 包名包含不允许的字符
	ErrInvalidPackageName = errors.New("无效的包名")
)

// PreconditionError 描述缺失的工具以及修复方式
type PreconditionError struct {
	Backend string
	Tool    string // 缺失的工具
	Path    string // 期望的路径
	Fix     string // 修复建议
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s 未安装 (%s)，%s 包管理无法工作。请先安装 %s", e.Tool, e.Path, e.Backend, e.Fix)
}

// Is 使 errors.Is(err, ErrPrecondition) 成立
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// IsFatal 判断错误是否需要终止整个进程
func IsFatal(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
