package commands

import (
	"context"
	"fmt"

	"github.com/bbq191/sparks-go/internal/runner"
	"github.com/spf13/cobra"
)

var checkPath string

// backendCmd 直接调用指定后端
var backendCmd = &cobra.Command{
	Use:   "backend <name> <operation> [args...]",
	Short: "使用指定的包管理后端执行操作",
	Long: `绕过平台自动选择，直接使用指定的后端。后端在目标主机上不可用时报错。

后端: apt, brew, ports, pacman, pip, npm, gem

操作:
  is-installed <package>...   检查软件包是否已安装
  add <package>...            安装软件包
  remove <package>...         删除软件包
  update                      刷新包索引
  upgrade                     升级全部软件包
  search <keyword>...         搜索软件包

仅 apt 支持的软件源操作:
  key <url>                   下载并添加 APT 签名密钥
  ppa <source>                添加软件源并刷新索引
  ppa-pkg <source> <package>... [--check <path>]
                              添加软件源后安装软件包，--check 路径存在时跳过

示例:
  sparks backend pip add httpie
  sparks backend ports add shells/zsh -H bsd1
  sparks backend apt ppa-pkg ppa:neovim-ppa/stable neovim --check /usr/bin/nvim`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBackend,
}

func init() {
	flags := backendCmd.Flags()
	flags.StringVar(&checkPath, "check", "", "ppa-pkg: 路径存在时跳过安装")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "跳过确认")
	flags.BoolVarP(&refreshFirst, "update", "u", false, "upgrade: 升级前先刷新包索引")
	flags.BoolVarP(&selectMode, "select", "s", false, "search: 交互选择并安装搜索结果")

	rootCmd.AddCommand(backendCmd)
}

func runBackend(cmd *cobra.Command, args []string) error {
	name, op, rest := args[0], args[1], args[2:]
	pick := dedicated(name)

	switch op {
	case "is-installed":
		return runIsInstalled(cmd, rest, pick)
	case "add", "install":
		return runAdd(cmd, rest, pick)
	case "remove":
		return runRemove(cmd, rest, pick)
	case "update":
		return runUpdate(cmd, pick)
	case "upgrade":
		return runUpgrade(cmd, pick)
	case "search":
		return runSearch(cmd, rest, pick)
	case "key", "ppa", "ppa-pkg":
		if name != "apt" {
			return fmt.Errorf("❌ 操作 %s 仅支持 apt 后端", op)
		}
		return runAptSource(cmd, op, rest)
	default:
		return fmt.Errorf("❌ 未知操作: %s", op)
	}
}

// runAptSource 执行 apt 软件源操作
func runAptSource(cmd *cobra.Command, op string, args []string) error {
	switch {
	case op == "ppa-pkg" && len(args) < 2:
		return fmt.Errorf("❌ 用法: sparks backend apt ppa-pkg <source> <package>...")
	case op != "ppa-pkg" && len(args) != 1:
		return fmt.Errorf("❌ 用法: sparks backend apt %s <参数>", op)
	}

	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		apt, err := target.Manager.Apt(ctx)
		if err != nil {
			return err
		}

		switch op {
		case "key":
			return apt.AddKey(ctx, args[0])
		case "ppa":
			return apt.AddPPA(ctx, args[0])
		default:
			installed, err := apt.PPAPackage(ctx, args[0], checkPath, args[1:]...)
			if err != nil {
				return err
			}
			if !installed {
				e.logger.Infof("[%s] 无需安装", target.Host)
			}
			return nil
		}
	})
}
