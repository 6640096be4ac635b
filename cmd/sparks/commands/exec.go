package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/bbq191/sparks-go/internal/config"
	"github.com/bbq191/sparks-go/internal/interactive"
	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/bbq191/sparks-go/internal/platform"
	"github.com/bbq191/sparks-go/internal/runner"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// 建立连接与交互提示的实现，测试中替换
var (
	openTransport                      = transport.Open
	prompter      interactive.Prompter = interactive.SurveyPrompter{}
)

// opsFunc 为目标主机选择操作入口
type opsFunc func(ctx context.Context, target *runner.Target) (pkgmgr.Operations, error)

// recommended 通用入口，按主机平台选择后端
func recommended(_ context.Context, target *runner.Target) (pkgmgr.Operations, error) {
	return target.Manager, nil
}

// dedicated 专用入口，使用指定后端
func dedicated(name string) opsFunc {
	return func(ctx context.Context, target *runner.Target) (pkgmgr.Operations, error) {
		return target.Manager.Use(ctx, name)
	}
}

// execution 一次命令在多台主机上的执行环境
type execution struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer
	hosts  []string
	runner *runner.Runner

	mu sync.Mutex // 保证多台主机的输出按行写入
}

// newExecution 加载配置并确定目标主机
func newExecution(cmd *cobra.Command) (*execution, error) {
	logger := GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	hosts, err := cfg.ResolveHosts(hostFlags)
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator(logger).ValidateHosts(hosts); err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	transportConfig := cfg.TransportConfig(out)
	open := func(ctx context.Context, host string) (transport.Connection, error) {
		return openTransport(ctx, host, transportConfig, logger)
	}

	r := runner.NewRunner(open, platform.NewCache(logger), logger, cfg.Parallel)
	r.SetBackendOptions(cfg.BackendOptions(nil))

	return &execution{
		cfg:    cfg,
		logger: logger,
		out:    out,
		hosts:  hosts,
		runner: r,
	}, nil
}

// run 在全部主机上执行任务
//
// 前置条件错误直接以 Fatal 结束进程。
func (e *execution) run(cmd *cobra.Command, task runner.Task) error {
	defer e.runner.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := e.runner.Run(ctx, e.hosts, func(ctx context.Context, target *runner.Target) error {
		detector := target.Session.Detector()
		detector.SetSilent(e.cfg.Silent)
		detector.SetOutput(e.out)
		return task(ctx, target)
	})

	if err != nil && pkgmgr.IsFatal(err) {
		e.logger.Fatal(err)
	}

	e.printSummary(results)
	return err
}

// printf 线程安全的输出
func (e *execution) printf(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, format, args...)
}

// printSummary 多主机时打印结果汇总
func (e *execution) printSummary(results []*runner.HostResult) {
	if len(results) < 2 {
		return
	}

	var failed []string
	for _, result := range results {
		if result.Error != nil {
			failed = append(failed, result.Host)
		}
	}

	succeeded := len(results) - len(failed)
	color.New(color.FgGreen).Fprintf(e.out, "\n✅ %d 台主机成功", succeeded)
	if len(failed) > 0 {
		color.New(color.FgRed).Fprintf(e.out, "，❌ %d 台主机失败: %s", len(failed), strings.Join(failed, ", "))
	}
	fmt.Fprintln(e.out)
}

// expandPackages 展开包参数，至少需要一个包
func (e *execution) expandPackages(args []string) ([]string, error) {
	pkgs, err := e.cfg.ExpandPackages(args)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("❌ 请指定软件包")
	}
	return pkgs, nil
}
