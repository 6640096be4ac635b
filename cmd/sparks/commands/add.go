package commands

import (
	"github.com/spf13/cobra"
)

// addCmd 安装软件包
var addCmd = &cobra.Command{
	Use:     "add <package>...",
	Aliases: []string{"install"},
	Short:   "安装软件包",
	Long: `使用目标主机推荐的包管理器安装软件包。

已安装的包会被跳过，可重复执行。包参数以 @ 开头时展开为配置中的包组。

示例:
  sparks add git vim
  sparks add @base -H @servers
  sparks install htop -H web1,web2 -P 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(cmd, args, recommended)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
