package transport

import (
	"context"
	"strings"
	"sync"
)

// Call 记录一次 Fake 上的命令调用
type Call struct {
	Command string
	Opts    ExecOptions
	Dir     string
}

// Responder 根据命令生成输出、退出码与通道错误
type Responder func(command string) (output string, exitCode int, err error)

type fakeRule struct {
	match   string
	respond Responder
}

type fakeState struct {
	mu          sync.Mutex
	rules       []fakeRule
	paths       map[string]bool
	calls       []Call
	defaultCode int
}

// Fake 按命令子串匹配脚本化响应的通道，供测试使用
//
// 规则按注册的逆序匹配，后注册的规则覆盖先注册的同类规则。
// 未匹配的命令返回 DefaultExitCode 与空输出。
type Fake struct {
	host  string
	dir   string
	state *fakeState
}

// NewFake 创建测试通道
func NewFake(host string) *Fake {
	return &Fake{
		host:  host,
		state: &fakeState{paths: make(map[string]bool)},
	}
}

// On 注册固定响应
func (f *Fake) On(match, output string, exitCode int) *Fake {
	return f.OnFunc(match, func(string) (string, int, error) {
		return output, exitCode, nil
	})
}

// OnError 注册通道级错误（如连接断开）
func (f *Fake) OnError(match string, err error) *Fake {
	return f.OnFunc(match, func(string) (string, int, error) {
		return "", 0, err
	})
}

// OnFunc 注册动态响应
func (f *Fake) OnFunc(match string, respond Responder) *Fake {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.rules = append(f.state.rules, fakeRule{match: match, respond: respond})
	return f
}

// SetDefaultExitCode 设置未匹配命令的退出码
func (f *Fake) SetDefaultExitCode(code int) *Fake {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.defaultCode = code
	return f
}

// SetPath 设置 PathExists 的结果
func (f *Fake) SetPath(path string, exists bool) *Fake {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.paths[path] = exists
	return f
}

// Host 返回主机标识
func (f *Fake) Host() string {
	return f.host
}

// Execute 记录调用并返回匹配的响应
func (f *Fake) Execute(ctx context.Context, command string, opts ExecOptions) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := f.dir
	if opts.Dir != "" {
		dir = opts.Dir
	}

	f.state.mu.Lock()
	f.state.calls = append(f.state.calls, Call{Command: command, Opts: opts, Dir: dir})
	respond := f.lookup(command)
	defaultCode := f.state.defaultCode
	f.state.mu.Unlock()

	output, exitCode := "", defaultCode
	if respond != nil {
		var err error
		output, exitCode, err = respond(command)
		if err != nil {
			return nil, err
		}
	}

	return finish(f.host, command, exitCode, output, opts, nil)
}

// lookup 调用方需持有锁
func (f *Fake) lookup(command string) Responder {
	for i := len(f.state.rules) - 1; i >= 0; i-- {
		if strings.Contains(command, f.state.rules[i].match) {
			return f.state.rules[i].respond
		}
	}
	return nil
}

// PathExists 返回 SetPath 设置的值，未设置时为 false
func (f *Fake) PathExists(ctx context.Context, path string, sudo bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.calls = append(f.state.calls, Call{Command: pathTestCommand(path), Opts: ExecOptions{Quiet: true, WarnOnly: true, Sudo: sudo}, Dir: f.dir})
	return f.state.paths[path], nil
}

// WithDir 返回共享状态的派生通道
func (f *Fake) WithDir(dir string) Transport {
	return &Fake{host: f.host, dir: dir, state: f.state}
}

// Close 无操作
func (f *Fake) Close() error {
	return nil
}

// Calls 返回全部调用记录的副本
func (f *Fake) Calls() []Call {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	calls := make([]Call, len(f.state.calls))
	copy(calls, f.state.calls)
	return calls
}

// Count 统计包含 substr 的命令次数
func (f *Fake) Count(substr string) int {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	count := 0
	for _, call := range f.state.calls {
		if strings.Contains(call.Command, substr) {
			count++
		}
	}
	return count
}

// Reset 清空调用记录，保留规则
func (f *Fake) Reset() {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.calls = nil
}
