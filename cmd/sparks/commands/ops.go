package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bbq191/sparks-go/internal/interactive"
	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/bbq191/sparks-go/internal/progress"
	"github.com/bbq191/sparks-go/internal/runner"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var (
	assumeYes    bool
	refreshFirst bool
	selectMode   bool
)

func runIsInstalled(cmd *cobra.Command, args []string, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	pkgs, err := e.expandPackages(args)
	if err != nil {
		return err
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}

		missing := 0
		for _, pkg := range pkgs {
			installed, err := ops.IsInstalled(ctx, pkg)
			if err != nil {
				return err
			}

			if installed {
				e.printf("[%s] %s: ✅ 已安装\n", target.Host, pkg)
			} else {
				missing++
				e.printf("[%s] %s: ❌ 未安装\n", target.Host, pkg)
			}
		}

		if missing > 0 {
			return fmt.Errorf("%d 个包未安装", missing)
		}
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	pkgs, err := e.expandPackages(args)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(len(e.hosts)*len(pkgs), e.out, e.logger, e.cfg.Quiet)
	e.runner.SetBackendOptions(e.cfg.BackendOptions(tracker))

	e.logger.Infof("📦 准备安装 %d 个包: %v", len(pkgs), pkgs)

	err = e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}

		installed, err := ops.Add(ctx, pkgs...)
		if err != nil {
			return err
		}
		if !installed {
			e.logger.Infof("[%s] 所有包均已安装", target.Host)
		}
		return nil
	})

	tracker.Close()
	if !e.cfg.Quiet {
		tracker.PrintSummaryTable()
	}
	return err
}

func runRemove(cmd *cobra.Command, args []string, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	pkgs, err := e.expandPackages(args)
	if err != nil {
		return err
	}

	if proceed, err := confirm(e, "删除软件包", pkgs); !proceed {
		return err
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}
		return ops.Remove(ctx, pkgs...)
	})
}

func runUpdate(cmd *cobra.Command, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}
		e.logger.Infof("[%s] 刷新包索引", target.Host)
		return ops.Update(ctx)
	})
}

func runUpgrade(cmd *cobra.Command, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	if proceed, err := confirm(e, "升级全部软件包", nil); !proceed {
		return err
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}

		if refreshFirst {
			e.logger.Infof("[%s] 刷新包索引", target.Host)
			if err := ops.Update(ctx); err != nil {
				return err
			}
		}

		e.logger.Infof("[%s] 升级全部软件包", target.Host)
		return ops.Upgrade(ctx)
	})
}

func runSearch(cmd *cobra.Command, args []string, pick opsFunc) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	pkgs, err := e.expandPackages(args)
	if err != nil {
		return err
	}

	if selectMode && len(e.hosts) > 1 {
		return fmt.Errorf("❌ --select 只能用于单台主机")
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		ops, err := pick(ctx, target)
		if err != nil {
			return err
		}

		var (
			results []pkgmgr.SearchResult
			failed  error
		)
		for result := range ops.Search(ctx, pkgs...) {
			printSearchResult(e, target.Host, result)
			if result.Err != nil {
				failed = multierror.Append(failed, fmt.Errorf("搜索 %s 失败: %w", result.Package, result.Err))
				continue
			}
			results = append(results, result)
		}

		if selectMode && len(results) > 0 {
			selected, err := interactive.SelectPackages(prompter, interactive.ParseCandidates(results))
			if err != nil {
				return multierror.Append(failed, err).ErrorOrNil()
			}
			if _, err := ops.Add(ctx, selected...); err != nil {
				return multierror.Append(failed, err).ErrorOrNil()
			}
		}
		return failed
	})
}

func printSearchResult(e *execution, host string, result pkgmgr.SearchResult) {
	if result.Err != nil {
		e.printf("[%s] 🔍 %s\n❌ %v\n\n", host, result.Package, result.Err)
		return
	}

	output := strings.TrimRight(result.Output, "\n")
	if output == "" {
		output = "(无结果)"
	}
	e.printf("[%s] 🔍 %s\n%s\n\n", host, result.Package, output)
}

// confirm 破坏性操作前请求确认
//
// 用户取消不视为错误，返回 false, nil。
func confirm(e *execution, action string, pkgs []string) (bool, error) {
	err := interactive.ConfirmAction(prompter, e.out, action, e.hosts, pkgs, assumeYes)
	switch {
	case errors.Is(err, interactive.ErrCancelled):
		e.logger.Warn(err)
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
