// Package interactive 提供命令行确认和选择交互
package interactive

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// ErrCancelled 用户取消操作
var ErrCancelled = errors.New("用户取消了操作")

// Prompter 交互接口，测试中可替换
type Prompter interface {
	Confirm(message, help string, def bool) (bool, error)
	MultiSelect(message string, options []string) ([]string, error)
}

// SurveyPrompter 基于 survey 的终端交互
type SurveyPrompter struct{}

// Confirm 询问是/否
func (SurveyPrompter) Confirm(message, help string, def bool) (bool, error) {
	var confirm bool
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
		Help:    help,
	}

	if err := survey.AskOne(prompt, &confirm); err != nil {
		return false, err
	}
	return confirm, nil
}

// MultiSelect 多选
func (SurveyPrompter) MultiSelect(message string, options []string) ([]string, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// ConfirmAction 在执行破坏性操作前显示预览并请求确认
//
// assumeYes 为 true 时直接通过。用户拒绝时返回 ErrCancelled。
func ConfirmAction(p Prompter, out io.Writer, action string, hosts, pkgs []string, assumeYes bool) error {
	if assumeYes {
		return nil
	}

	fmt.Fprintf(out, "\n📋 操作预览\n")
	fmt.Fprintf(out, "═══════════════════════════════════════\n")
	fmt.Fprintf(out, "操作: %s\n", action)
	fmt.Fprintf(out, "主机: %s\n", strings.Join(hosts, ", "))
	if len(pkgs) > 0 {
		fmt.Fprintf(out, "软件包 (%d 个): %s\n", len(pkgs), strings.Join(pkgs, " "))
	}
	fmt.Fprintln(out)

	confirm, err := p.Confirm(fmt.Sprintf("确认%s吗?", action), "使用 --yes 跳过确认", false)
	if err != nil {
		return err
	}
	if !confirm {
		return ErrCancelled
	}
	return nil
}
