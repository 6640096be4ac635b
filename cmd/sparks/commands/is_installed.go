package commands

import (
	"github.com/spf13/cobra"
)

// isInstalledCmd 检查包是否已安装
var isInstalledCmd = &cobra.Command{
	Use:   "is-installed <package>...",
	Short: "检查软件包是否已安装",
	Long: `使用目标主机推荐的包管理器检查软件包是否已安装。

任一软件包未安装时命令以非零状态退出。

示例:
  sparks is-installed git
  sparks is-installed git curl -H web1
  sparks is-installed @base`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIsInstalled(cmd, args, recommended)
	},
}

func init() {
	rootCmd.AddCommand(isInstalledCmd)
}
