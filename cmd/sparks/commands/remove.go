package commands

import (
	"github.com/spf13/cobra"
)

// removeCmd 删除软件包
var removeCmd = &cobra.Command{
	Use:     "remove <package>...",
	Aliases: []string{"rm"},
	Short:   "删除软件包",
	Long: `使用目标主机推荐的包管理器删除软件包，未安装的包直接跳过。

执行前会请求确认，使用 --yes 跳过确认。

示例:
  sparks remove nano
  sparks remove nano -H @servers --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, args, recommended)
	},
}

func init() {
	removeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "跳过确认")
	rootCmd.AddCommand(removeCmd)
}
