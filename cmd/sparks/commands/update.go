package commands

import (
	"github.com/spf13/cobra"
)

// updateCmd 刷新包索引
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "刷新包索引",
	Long: `使用目标主机推荐的包管理器刷新包索引 (apt-get update / brew update)。

示例:
  sparks update
  sparks update -H @servers`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, recommended)
	},
}

// upgradeCmd 升级全部软件包
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "升级全部已安装的软件包",
	Long: `使用目标主机推荐的包管理器升级全部已安装的软件包。

使用 --update 在升级前先刷新包索引。执行前会请求确认，使用 --yes 跳过确认。

示例:
  sparks upgrade --update
  sparks upgrade -H @servers --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpgrade(cmd, recommended)
	},
}

func init() {
	upgradeCmd.Flags().BoolVarP(&refreshFirst, "update", "u", false, "升级前先刷新包索引")
	upgradeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "跳过确认")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(upgradeCmd)
}
