package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"text/template"
	"time"

	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// UsableFunc 判断后端在主机上是否可用
type UsableFunc func(ctx context.Context, t transport.Transport, profile *platform.HostProfile) (bool, error)

// AfterAddFunc 在一次 Add 实际安装了包之后执行
type AfterAddFunc func(ctx context.Context, t transport.Transport) error

// commandBackend 由命令模板驱动的通用后端实现
type commandBackend struct {
	name      string
	transport transport.Transport
	logger    *logrus.Logger
	templates map[string]*template.Template
	usable    UsableFunc
	workDir   string // 非空时所有命令在该目录中执行
	afterAdd  AfterAddFunc
	observer  Observer
	quiet     bool
}

// newCommandBackend 创建模板后端
func newCommandBackend(name string, t transport.Transport, logger *logrus.Logger, templates Templates, usable UsableFunc, opts Options) *commandBackend {
	return &commandBackend{
		name:      name,
		transport: t,
		logger:    logger,
		templates: templates.mustCompile(name),
		usable:    usable,
		observer:  opts.Observer,
		quiet:     opts.Quiet,
	}
}

// Name 返回后端名称
func (b *commandBackend) Name() string {
	return b.name
}

// Usable 判断后端是否可用
func (b *commandBackend) Usable(ctx context.Context, profile *platform.HostProfile) (bool, error) {
	if b.usable == nil {
		return true, nil
	}
	usable, err := b.usable(ctx, b.transport, profile)
	b.logger.Debugf("[%s] %s 可用性检查: %v", b.transport.Host(), b.name, usable)
	return usable, err
}

// setObserver 替换事件观察者
func (b *commandBackend) setObserver(o Observer) {
	b.observer = o
}

// run 在工作目录（如有）中执行 fn
func (b *commandBackend) run(fn func(t transport.Transport) error) error {
	if b.workDir == "" {
		return fn(b.transport)
	}
	return transport.InDir(b.transport, b.workDir, fn)
}

// render 渲染指定操作的命令，后端不支持该操作时返回 ErrNotImplemented
func (b *commandBackend) render(op, pkg string) (string, error) {
	tmpl, ok := b.templates[op]
	if !ok {
		return "", fmt.Errorf("%s %s: %w", b.name, op, ErrNotImplemented)
	}
	return renderTemplate(tmpl, pkg)
}

// IsInstalled 检查包是否已安装，命令以静默、仅警告方式执行
func (b *commandBackend) IsInstalled(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	var installed bool
	err := b.run(func(t transport.Transport) error {
		var err error
		installed, err = b.isInstalled(ctx, t, name)
		return err
	})
	return installed, err
}

func (b *commandBackend) isInstalled(ctx context.Context, t transport.Transport, name string) (bool, error) {
	cmd, err := b.render(opIsInstalled, name)
	if err != nil {
		return false, err
	}

	result, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: true, WarnOnly: true, Sudo: true})
	if err != nil {
		return false, err
	}

	b.logger.Debugf("[%s] 包 %s 安装状态: %v", t.Host(), name, result.Succeeded)
	return result.Succeeded, nil
}

// Add 安装尚未安装的包
func (b *commandBackend) Add(ctx context.Context, pkgs ...string) (bool, error) {
	names, err := normalizeAndCheck(pkgs)
	if err != nil {
		return false, err
	}

	installed := false
	err = b.run(func(t transport.Transport) error {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}

			added, err := b.addOne(ctx, t, name)
			if err != nil {
				return err
			}
			installed = installed || added
		}

		if installed && b.afterAdd != nil {
			return b.afterAdd(ctx, t)
		}
		return nil
	})

	return installed, err
}

func (b *commandBackend) addOne(ctx context.Context, t transport.Transport, name string) (bool, error) {
	start := time.Now()
	b.notify(Event{Type: EventStart, Host: t.Host(), Package: name})

	already, err := b.isInstalled(ctx, t, name)
	if err != nil {
		b.notify(Event{Type: EventFailed, Host: t.Host(), Package: name, Error: err, Duration: time.Since(start)})
		return false, err
	}

	if already {
		b.logger.Debugf("[%s] 包 %s 已安装，跳过", t.Host(), name)
		b.notify(Event{Type: EventSkipped, Host: t.Host(), Package: name, Duration: time.Since(start)})
		return false, nil
	}

	cmd, err := b.render(opInstall, name)
	if err == nil {
		b.logger.Infof("[%s] 使用 %s 安装包: %s", t.Host(), b.name, name)
		_, err = t.Execute(ctx, cmd, transport.ExecOptions{Quiet: b.quiet, Sudo: true})
	}
	if err != nil {
		err = fmt.Errorf("%s 安装 %s 失败: %w", b.name, name, err)
		b.notify(Event{Type: EventFailed, Host: t.Host(), Package: name, Error: err, Duration: time.Since(start)})
		return false, err
	}

	b.notify(Event{Type: EventInstalled, Host: t.Host(), Package: name, Duration: time.Since(start)})
	return true, nil
}

// Remove 删除已安装的包
func (b *commandBackend) Remove(ctx context.Context, pkgs ...string) error {
	names, err := normalizeAndCheck(pkgs)
	if err != nil {
		return err
	}

	return b.run(func(t transport.Transport) error {
		for _, name := range names {
			installed, err := b.isInstalled(ctx, t, name)
			if err != nil {
				return err
			}
			if !installed {
				b.logger.Debugf("[%s] 包 %s 未安装，无需删除", t.Host(), name)
				continue
			}

			cmd, err := b.render(opRemove, name)
			if err != nil {
				return err
			}

			b.logger.Infof("[%s] 使用 %s 删除包: %s", t.Host(), b.name, name)
			if _, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: b.quiet, Sudo: true}); err != nil {
				return fmt.Errorf("%s 删除 %s 失败: %w", b.name, name, err)
			}
		}
		return nil
	})
}

// Update 刷新包索引，后端未提供时只给出警告
func (b *commandBackend) Update(ctx context.Context) error {
	return b.runGlobal(ctx, opUpdate)
}

// Upgrade 升级全部包，后端未提供时只给出警告
func (b *commandBackend) Upgrade(ctx context.Context) error {
	return b.runGlobal(ctx, opUpgrade)
}

func (b *commandBackend) runGlobal(ctx context.Context, op string) error {
	cmd, err := b.render(op, "")
	if errors.Is(err, ErrNotImplemented) {
		b.logger.Warnf("[%s] %s 的 %s 操作尚未实现", b.transport.Host(), b.name, op)
		return nil
	}
	if err != nil {
		return err
	}

	return b.run(func(t transport.Transport) error {
		_, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: b.quiet, Sudo: true})
		return err
	})
}

// Search 按输入顺序逐个搜索，迭代器被提前停止时不再执行后续搜索
func (b *commandBackend) Search(ctx context.Context, pkgs ...string) iter.Seq[SearchResult] {
	names := Normalize(pkgs...)

	return func(yield func(SearchResult) bool) {
		for _, name := range names {
			var result SearchResult
			_ = b.run(func(t transport.Transport) error {
				result = b.searchOne(ctx, t, name)
				return nil
			})
			if !yield(result) {
				return
			}
		}
	}
}

func (b *commandBackend) searchOne(ctx context.Context, t transport.Transport, name string) SearchResult {
	result := SearchResult{Package: name}

	if err := ValidateName(name); err != nil {
		result.Err = err
		return result
	}

	cmd, err := b.render(opSearch, name)
	if err != nil {
		result.Err = err
		return result
	}

	out, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: true, WarnOnly: true, Sudo: true})
	if err != nil {
		result.Err = err
		return result
	}

	result.Output = out.Output
	result.Succeeded = out.Succeeded
	return result
}

func (b *commandBackend) notify(event Event) {
	if b.observer == nil {
		return
	}
	event.Backend = b.name
	b.observer.Notify(event)
}

// commandSucceeds 以静默、仅警告方式执行命令并返回是否成功
func commandSucceeds(ctx context.Context, t transport.Transport, cmd string) (bool, error) {
	result, err := t.Execute(ctx, cmd, transport.ExecOptions{Quiet: true, WarnOnly: true})
	if err != nil {
		return false, err
	}
	return result.Succeeded, nil
}

// toolUsable 生成"远程命令存在即可用"的判断函数
func toolUsable(tool string) UsableFunc {
	return func(ctx context.Context, t transport.Transport, _ *platform.HostProfile) (bool, error) {
		return commandSucceeds(ctx, t, "command -v "+tool+" >/dev/null 2>&1")
	}
}
