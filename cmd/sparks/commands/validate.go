package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// validateCmd 验证配置命令
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证配置文件",
	Long: `验证配置文件的格式和内容是否正确。

验证项目:
  • 主机名与主机组引用
  • 主机组与包集合名称
  • 包名字符集
  • 并发数与 SSH 参数范围

示例:
  sparks validate                      # 验证默认配置
  sparks validate --config=sparks.yaml # 验证指定配置`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := GetLogger()
	logger.Info("开始配置验证流程")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ 配置验证失败:\n%v\n", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✅ 配置验证通过")
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "配置文件: %s\n", used)
	} else {
		fmt.Fprintln(out, "配置文件: 未找到，使用默认值")
	}

	hosts, err := cfg.ResolveHosts(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "默认主机: %s\n", strings.Join(hosts, ", "))
	fmt.Fprintf(out, "并发数: %d\n", cfg.Parallel)

	printSets(out, "主机组", cfg.Groups)
	printSets(out, "包集合", cfg.Bundles)
	return nil
}

func printSets(out io.Writer, title string, sets map[string][]string) {
	if len(sets) == 0 {
		return
	}

	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "\n=== %s (%d) ===\n", title, len(sets))
	for _, name := range names {
		fmt.Fprintf(out, "@%s: %s\n", name, strings.Join(sets[name], ", "))
	}
}
