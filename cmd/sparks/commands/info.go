package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bbq191/sparks-go/internal/runner"
	"github.com/spf13/cobra"
)

// infoCmd 显示主机信息命令
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "显示目标主机的平台信息",
	Long: `检测目标主机并显示详细信息，包括：

• 系统族 (LSB / OSX)
• Linux 发行版信息
• 内核与架构
• 当前用户与主目录
• 虚拟化环境
• 推荐及可用的包管理后端

示例:
  sparks info
  sparks info -H web1,web2
  sparks info -H @servers`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	e.logger.Info("正在检测平台信息...")

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		profile, err := target.Session.Profile(ctx)
		if err != nil {
			return fmt.Errorf("平台检测失败: %w", err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "=== %s ===\n", target.Host)
		fmt.Fprintf(&b, "系统族: %s\n", profile.OSFamily)
		if profile.Distribution != nil {
			fmt.Fprintf(&b, "发行版: %s (原生包管理器: %s)\n", profile.Distribution, profile.Distribution.PackageManager())
		}
		fmt.Fprintf(&b, "内核: %s %s (%s)\n", profile.Kernel.SystemName, profile.Kernel.Release, profile.Arch())
		fmt.Fprintf(&b, "用户: %s  主目录: %s\n", profile.User, profile.Home)
		fmt.Fprintf(&b, "虚拟机: %v (Parallels: %v)\n", profile.IsVM, profile.IsParallels)

		if backend, err := target.Manager.Select(profile); err == nil {
			fmt.Fprintf(&b, "推荐的包管理器: %s\n", backend.Name())
		} else {
			fmt.Fprintf(&b, "推荐的包管理器: 无 (%v)\n", err)
		}

		fmt.Fprintf(&b, "支持的包管理器: %v\n", target.Manager.Names())

		available, err := target.Manager.Available(ctx)
		if err != nil {
			return err
		}
		if len(available) > 0 {
			fmt.Fprintf(&b, "可用的包管理器: %v\n", available)
		} else {
			fmt.Fprintln(&b, "未检测到任何包管理器")
		}

		e.printf("%s\n", b.String())
		return nil
	})
}
