// Package transport 提供在本地或远程主机上执行 shell 命令的统一抽象
package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

// ExecOptions 命令执行选项
type ExecOptions struct {
	Quiet    bool   // 静默模式，不回显命令输出
	WarnOnly bool   // 非零退出码只记录警告，不返回错误
	Sudo     bool   // 通过 sudo 执行
	Dir      string // 执行前切换到的工作目录，覆盖 WithDir 设置
}

// Result 命令执行结果
type Result struct {
	Command   string // 实际发送的完整命令
	Succeeded bool   // 退出码是否为 0
	ExitCode  int
	Output    string // 合并后的 stdout/stderr
}

// Transport 命令执行通道
type Transport interface {
	// Host 返回主机标识，本地为 "localhost"
	Host() string

	// Execute 执行命令并阻塞至结束
	Execute(ctx context.Context, command string, opts ExecOptions) (*Result, error)

	// PathExists 检查路径在目标主机上是否存在
	PathExists(ctx context.Context, path string, sudo bool) (bool, error)

	// WithDir 返回一个默认工作目录为 dir 的派生通道，原通道不受影响
	WithDir(dir string) Transport
}

// Connection 需要显式关闭的通道
type Connection interface {
	Transport
	io.Closer
}

// Config 通道配置
type Config struct {
	NoSudo bool // 已是 root 时不再包裹 sudo
	SSH    SSHConfig
	Output io.Writer // 非静默命令的输出目标，为空时丢弃
}

// SSHConfig SSH 连接配置
type SSHConfig struct {
	ConfigFile            string        // ssh_config 路径，用于解析主机别名
	User                  string        // 默认用户，ssh_config 中的 User 优先级更低
	Port                  int           // 默认端口
	IdentityFiles         []string      // 私钥文件
	KnownHostsFile        string        // known_hosts 路径
	InsecureIgnoreHostKey bool          // 跳过主机密钥校验
	Timeout               time.Duration // 连接超时
}

// CommandError 命令以非零状态退出
type CommandError struct {
	Host     string
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("[%s] 命令执行失败 (退出码 %d): %s", e.Host, e.ExitCode, e.Command)
}

// InDir 在 dir 作为工作目录的作用域内执行 fn
func InDir(t Transport, dir string, fn func(Transport) error) error {
	return fn(t.WithDir(dir))
}

// BuildCommand 组合工作目录切换与 sudo 包裹后的完整命令
func BuildCommand(command string, opts ExecOptions, dir string, noSudo bool) string {
	if opts.Dir != "" {
		dir = opts.Dir
	}

	if dir != "" {
		command = "cd " + shellescape.Quote(dir) + " && " + command
	}

	if opts.Sudo && !noSudo {
		// -n: 需要密码时直接失败，避免在无终端的会话中挂起
		command = "sudo -n -H sh -c " + shellescape.Quote(command)
	}

	return command
}

// pathTestCommand 构建路径存在性检查命令
func pathTestCommand(path string) string {
	return "test -e " + shellescape.Quote(path)
}

// finish 根据退出码和选项生成结果或错误
func finish(host, command string, exitCode int, output string, opts ExecOptions, out io.Writer) (*Result, error) {
	result := &Result{
		Command:   command,
		Succeeded: exitCode == 0,
		ExitCode:  exitCode,
		Output:    output,
	}

	if !opts.Quiet && out != nil && output != "" {
		fmt.Fprintf(out, "[%s] out: %s\n", host, strings.TrimRight(output, "\n"))
	}

	if !result.Succeeded && !opts.WarnOnly {
		return result, &CommandError{
			Host:     host,
			Command:  command,
			ExitCode: exitCode,
			Output:   output,
		}
	}

	return result, nil
}
