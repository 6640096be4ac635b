package commands

import (
	"context"
	"fmt"

	"github.com/bbq191/sparks-go/internal/runner"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/spf13/cobra"
)

// testCmd 连通性测试
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "测试与目标主机的连接",
	Long: `在目标主机上执行一条简单命令并显示主机信息，用于确认连接和平台检测正常。

示例:
  sparks test -H web1
  sparks test -H @servers`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	e, err := newExecution(cmd)
	if err != nil {
		return err
	}

	command := fmt.Sprintf(`uname -a; uptime; echo "$USER -- $PWD -- sparks v%s"`, Version)

	return e.run(cmd, func(ctx context.Context, target *runner.Target) error {
		if _, err := target.Session.Profile(ctx); err != nil {
			return err
		}

		result, err := target.Session.Transport().Execute(ctx, command, transport.ExecOptions{Quiet: true})
		if err != nil {
			return err
		}
		if !e.cfg.Quiet {
			e.printf("[%s]\n%s\n", target.Host, result.Output)
		}
		return nil
	})
}
