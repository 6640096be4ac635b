package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bbq191/sparks-go/internal/config"
	"github.com/bbq191/sparks-go/internal/interactive"
	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ubuntuLSB = "Distributor ID:\tUbuntu\nDescription:\tUbuntu 14.04 LTS\nRelease:\t14.04\nCodename:\ttrusty\n"

// scriptedPrompter 按预设回答交互提示
type scriptedPrompter struct {
	confirm  bool
	confirms int
	choose   func(options []string) []string
}

func (p *scriptedPrompter) Confirm(message, help string, def bool) (bool, error) {
	p.confirms++
	return p.confirm, nil
}

func (p *scriptedPrompter) MultiSelect(message string, options []string) ([]string, error) {
	return p.choose(options), nil
}

// cliHarness 以模拟通道运行命令
type cliHarness struct {
	cmd      *cobra.Command
	out      *bytes.Buffer
	hook     *logtest.Hook
	exitCode int
	prompter *scriptedPrompter
}

func newCLIHarness(t *testing.T, fakes map[string]*transport.Fake) *cliHarness {
	t.Helper()

	savedLogger, savedHosts := rootLogger, hostFlags
	savedOpen, savedPrompter := openTransport, prompter
	savedYes, savedRefresh, savedSelect := assumeYes, refreshFirst, selectMode
	t.Cleanup(func() {
		rootLogger, hostFlags = savedLogger, savedHosts
		openTransport, prompter = savedOpen, savedPrompter
		assumeYes, refreshFirst, selectMode = savedYes, savedRefresh, savedSelect
		viper.Reset()
	})

	viper.Reset()
	config.SetDefaults(viper.GetViper())
	viper.Set("silent", true)
	viper.Set("quiet", true)

	h := &cliHarness{out: &bytes.Buffer{}, prompter: &scriptedPrompter{}}

	logger, hook := logtest.NewNullLogger()
	logger.ExitFunc = func(code int) { h.exitCode = code }
	h.hook = hook
	rootLogger = logger

	hostFlags = nil
	for host := range fakes {
		hostFlags = append(hostFlags, host)
	}
	openTransport = func(ctx context.Context, host string, cfg transport.Config, logger *logrus.Logger) (transport.Connection, error) {
		return fakes[host], nil
	}
	prompter = h.prompter
	assumeYes, refreshFirst, selectMode = false, false, false

	h.cmd = &cobra.Command{}
	h.cmd.SetContext(context.Background())
	h.cmd.SetOut(h.out)
	return h
}

func ubuntuHost(host string) *transport.Fake {
	return transport.NewFake(host).
		On("lsb_release", ubuntuLSB, 0).
		On("uname", "Linux\n"+host+"\n3.13\n#1 SMP\nx86_64\n", 0).
		On("echo", "olive,/home/olive", 0).
		On("prl_fs", "", 1)
}

func freebsdHost(host string) *transport.Fake {
	return transport.NewFake(host).
		On("lsb_release", "", 1).
		On("uname", "FreeBSD\n"+host+"\n10.0-RELEASE\n#0\namd64\n", 0).
		On("echo", "olive,/home/olive", 0).
		On("prl_fs", "", 1)
}

// installed 让 dpkg 检查只对给定的包成功
func installed(fake *transport.Fake, pkgs ...string) *transport.Fake {
	return fake.OnFunc("dpkg -l", func(cmd string) (string, int, error) {
		for _, pkg := range pkgs {
			if strings.Contains(cmd, "  "+pkg+" ") {
				return "ii  " + pkg + " 1.0", 0, nil
			}
		}
		return "", 1, nil
	})
}

// index 返回第一个包含 substr 的命令的位置
func index(calls []transport.Call, substr string) int {
	for i, call := range calls {
		if strings.Contains(call.Command, substr) {
			return i
		}
	}
	return -1
}

// TestIsInstalled_MissingPackageFails 测试有包未安装时命令失败
func TestIsInstalled_MissingPackageFails(t *testing.T) {
	fake := installed(ubuntuHost("box"), "git")
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})

	err := runIsInstalled(h.cmd, []string{"git", "emacs"}, recommended)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 个包未安装")
	assert.Contains(t, h.out.String(), "git: ✅")
	assert.Contains(t, h.out.String(), "emacs: ❌")

	h.out.Reset()
	require.NoError(t, runIsInstalled(h.cmd, []string{"git"}, recommended), "全部已安装时应该成功")
}

// TestRemove_CancelledIsNotError 测试用户取消删除时不报错也不执行
func TestRemove_CancelledIsNotError(t *testing.T) {
	fake := installed(ubuntuHost("box"), "nano")
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})
	h.prompter.confirm = false

	require.NoError(t, runRemove(h.cmd, []string{"nano"}, recommended))
	assert.Equal(t, 1, h.prompter.confirms)
	assert.Empty(t, fake.Calls(), "取消后不应该连接主机")
	assert.Contains(t, h.out.String(), "删除软件包")

	h.prompter.confirm = true
	require.NoError(t, runRemove(h.cmd, []string{"nano"}, recommended))
	assert.Equal(t, 1, fake.Count("apt-get -q remove --purge --yes --force-yes nano"))
}

// TestRemove_AssumeYesSkipsPrompt 测试 --yes 跳过确认
func TestRemove_AssumeYesSkipsPrompt(t *testing.T) {
	fake := installed(ubuntuHost("box"), "nano")
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})
	assumeYes = true

	require.NoError(t, runRemove(h.cmd, []string{"nano"}, recommended))
	assert.Zero(t, h.prompter.confirms)
	assert.Equal(t, 1, fake.Count("apt-get -q remove"))
}

// TestUpgrade_RefreshFirst 测试 --update 在升级前刷新索引
func TestUpgrade_RefreshFirst(t *testing.T) {
	fake := ubuntuHost("box")
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})
	assumeYes = true

	require.NoError(t, runUpgrade(h.cmd, recommended))
	assert.Equal(t, 0, fake.Count("apt-get update"), "未指定 --update 时不应该刷新")
	assert.Equal(t, 1, fake.Count("dist-upgrade"))

	fake.Reset()
	refreshFirst = true
	require.NoError(t, runUpgrade(h.cmd, recommended))

	calls := fake.Calls()
	update, upgrade := index(calls, "apt-get update -q"), index(calls, "dist-upgrade")
	require.GreaterOrEqual(t, update, 0, "应该刷新索引")
	require.GreaterOrEqual(t, upgrade, 0, "应该升级")
	assert.Less(t, update, upgrade, "刷新应该在升级之前")
}

// TestSearch_SelectInstalls 测试从搜索结果中选择并安装
func TestSearch_SelectInstalls(t *testing.T) {
	fake := installed(ubuntuHost("box")).
		On("apt-cache search", "ripgrep - recursive grep\nripgrep-all - grep for documents\n", 0)
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})
	selectMode = true

	var offered []string
	h.prompter.choose = func(options []string) []string {
		offered = options
		return options[:1]
	}

	require.NoError(t, runSearch(h.cmd, []string{"ripgrep"}, recommended))
	assert.Equal(t, []string{"ripgrep - recursive grep", "ripgrep-all - grep for documents"}, offered)
	assert.Equal(t, 1, fake.Count("apt-get -q install --yes --force-yes ripgrep"))
	assert.Equal(t, 0, fake.Count("install --yes --force-yes ripgrep-all"))
	assert.Contains(t, h.out.String(), "🔍 ripgrep")
}

// TestSearch_ContinuesPastFailures 测试单个包搜索失败时继续搜索其余包
func TestSearch_ContinuesPastFailures(t *testing.T) {
	fake := ubuntuHost("box").On("apt-cache search", "fd-find - simple find\n", 0)
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})

	err := runSearch(h.cmd, []string{"a|b", "fd-find"}, recommended)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgmgr.ErrInvalidPackageName)

	out := h.out.String()
	assert.Contains(t, out, "🔍 a|b\n❌")
	assert.Contains(t, out, "fd-find - simple find")
	assert.Equal(t, 1, fake.Count("apt-cache search fd-find"))
}

// TestRun_PreconditionIsFatal 测试缺少前置工具时以 Fatal 结束
func TestRun_PreconditionIsFatal(t *testing.T) {
	fake := freebsdHost("beastie").SetPath("/usr/local/bin/sudo", true)
	h := newCLIHarness(t, map[string]*transport.Fake{"beastie": fake})

	err := runIsInstalled(h.cmd, []string{"shells/zsh"}, dedicated("ports"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgmgr.ErrPrecondition)
	assert.Equal(t, 1, h.exitCode, "前置条件错误应该以状态 1 退出")

	var fatal *logrus.Entry
	for _, entry := range h.hook.AllEntries() {
		if entry.Level == logrus.FatalLevel {
			fatal = entry
		}
	}
	require.NotNil(t, fatal)
	assert.Contains(t, fatal.Message, "portmaster")
	assert.Equal(t, 0, fake.Count("portmaster -l"), "不应该执行包命令")
}

// TestRun_OrdinaryErrorIsNotFatal 测试普通失败不会以 Fatal 结束
func TestRun_OrdinaryErrorIsNotFatal(t *testing.T) {
	fake := installed(ubuntuHost("box"))
	h := newCLIHarness(t, map[string]*transport.Fake{"box": fake})

	require.Error(t, runIsInstalled(h.cmd, []string{"git"}, recommended))
	assert.Zero(t, h.exitCode)
}

// TestInfo 测试主机信息输出
func TestInfo(t *testing.T) {
	h := newCLIHarness(t, map[string]*transport.Fake{"box": ubuntuHost("box")})

	require.NoError(t, runInfo(h.cmd, nil))

	out := h.out.String()
	assert.Contains(t, out, "=== box ===")
	assert.Contains(t, out, "原生包管理器: apt")
	assert.Contains(t, out, "推荐的包管理器: apt")
	assert.Contains(t, out, "支持的包管理器: [apt brew ports pacman pip npm gem]")
	assert.Contains(t, out, "用户: olive")
}

var _ interactive.Prompter = (*scriptedPrompter)(nil)
