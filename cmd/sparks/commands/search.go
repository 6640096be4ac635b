package commands

import (
	"github.com/spf13/cobra"
)

// searchCmd 搜索软件包
var searchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "搜索软件包",
	Long: `使用目标主机推荐的包管理器依次搜索每个关键字。

使用 --select 在搜索结果中交互选择并安装软件包（仅限单台主机）。

示例:
  sparks search ripgrep
  sparks search fd bat --select`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, recommended)
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&selectMode, "select", "s", false, "交互选择并安装搜索结果")
	rootCmd.AddCommand(searchCmd)
}
