package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Local 在本机通过 sh -c 执行命令
type Local struct {
	logger *logrus.Logger
	out    io.Writer
	noSudo bool
	dir    string
}

// NewLocal 创建本地执行通道
func NewLocal(cfg Config, logger *logrus.Logger) *Local {
	return &Local{
		logger: logger,
		out:    cfg.Output,
		noSudo: cfg.NoSudo,
	}
}

// Host 返回主机标识
func (l *Local) Host() string {
	return "localhost"
}

// Execute 执行命令
func (l *Local) Execute(ctx context.Context, command string, opts ExecOptions) (*Result, error) {
	full := BuildCommand(command, opts, l.dir, l.noSudo)
	l.logger.Debugf("[%s] 执行命令: %s", l.Host(), full)

	cmd := exec.CommandContext(ctx, "sh", "-c", full)
	output, err := cmd.CombinedOutput()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("启动本地命令失败: %w", err)
		}
		exitCode = exitErr.ExitCode()
		if exitCode < 0 {
			// 被信号终止（通常是 ctx 取消）
			return nil, fmt.Errorf("本地命令被中断: %w", err)
		}
	}

	l.logger.Debugf("[%s] 退出码: %d", l.Host(), exitCode)
	return finish(l.Host(), full, exitCode, string(output), opts, l.out)
}

// PathExists 检查路径是否存在
func (l *Local) PathExists(ctx context.Context, path string, sudo bool) (bool, error) {
	result, err := l.Execute(ctx, pathTestCommand(path), ExecOptions{Quiet: true, WarnOnly: true, Sudo: sudo})
	if err != nil {
		return false, err
	}
	return result.Succeeded, nil
}

// WithDir 返回切换了工作目录的派生通道
func (l *Local) WithDir(dir string) Transport {
	derived := *l
	derived.dir = dir
	return &derived
}

// Close 本地通道无需释放资源
func (l *Local) Close() error {
	return nil
}
