package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func loadJSON(t *testing.T, content string) (*Config, error) {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("json")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return Load(v, testLogger())
}

// TestLoad_Defaults 测试默认值
func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadJSON(t, `{}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultParallel, cfg.Parallel)
	assert.Equal(t, DefaultSSHTimeout, cfg.SSH.Timeout)
	assert.False(t, cfg.Sudo.Disabled)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ssh/config"), cfg.SSH.ConfigFile)
}

// TestLoad_File 测试完整配置
func TestLoad_File(t *testing.T) {
	cfg, err := loadJSON(t, `{
		"hosts": ["olive@duncan", "@web"],
		"groups": {"web": ["web1.example.org", "10.0.0.2"]},
		"bundles": {"devtools": ["git", "vim", "build-essential"]},
		"parallel": 4,
		"quiet": true,
		"sudo": {"disabled": true},
		"ssh": {"user": "deploy", "port": 2222, "timeout": "3s", "identity_files": ["~/.ssh/id_ed25519"]}
	}`)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Parallel)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, 3*time.Second, cfg.SSH.Timeout)
	assert.Equal(t, 2222, cfg.SSH.Port)
	require.Len(t, cfg.SSH.IdentityFiles, 1)
	assert.False(t, strings.HasPrefix(cfg.SSH.IdentityFiles[0], "~"), "~ 应该被展开")

	tc := cfg.TransportConfig(&bytes.Buffer{})
	assert.True(t, tc.NoSudo)
	assert.Equal(t, "deploy", tc.SSH.User)
	assert.Equal(t, 2222, tc.SSH.Port)
}

// TestLoad_Invalid 测试验证失败
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"并发数", `{"parallel": 0}`, "Parallel"},
		{"主机名", `{"hosts": ["bad host"]}`, "主机名"},
		{"组成员", `{"groups": {"web": ["@db"]}}`, "主机名"},
		{"空组", `{"groups": {"web": []}}`, "Groups"},
		{"包名", `{"bundles": {"dev": ["vim; reboot"]}}`, "包名"},
		{"端口", `{"ssh": {"port": 70000}}`, "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadJSON(t, tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestLoad_Env 测试环境变量覆盖
func TestLoad_Env(t *testing.T) {
	t.Setenv("SPARKS_PARALLEL", "3")
	t.Setenv("SPARKS_SSH_USER", "ops")
	t.Setenv("SPARKS_SUDO_DISABLED", "true")

	cfg, err := loadJSON(t, `{"parallel": 8}`)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Parallel)
	assert.Equal(t, "ops", cfg.SSH.User)
	assert.True(t, cfg.Sudo.Disabled)
}

// TestResolveHosts 测试主机展开
func TestResolveHosts(t *testing.T) {
	cfg := &Config{
		Hosts:  []string{"duncan"},
		Groups: map[string][]string{"web": {"web1", "web2"}},
	}

	hosts, err := cfg.ResolveHosts(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"duncan"}, hosts)

	hosts, err = cfg.ResolveHosts([]string{"@web,db1", "db2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"web1", "web2", "db1", "db2"}, hosts)

	_, err = cfg.ResolveHosts([]string{"@missing"})
	assert.Error(t, err)

	hosts, err = (&Config{}).ResolveHosts(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, hosts)
}

// TestExpandPackages 测试包集合展开
func TestExpandPackages(t *testing.T) {
	cfg := &Config{Bundles: map[string][]string{"dev": {"git", "vim"}}}

	pkgs, err := cfg.ExpandPackages([]string{"htop @dev", "curl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"htop", "git", "vim", "curl"}, pkgs)

	_, err = cfg.ExpandPackages([]string{"@nope"})
	assert.Error(t, err)
}

// TestValidateHosts 测试命令行主机验证
func TestValidateHosts(t *testing.T) {
	v := NewValidator(testLogger())

	assert.NoError(t, v.ValidateHosts([]string{"localhost", "olive@duncan", "10.0.0.1", "my_alias"}))
	assert.Error(t, v.ValidateHosts([]string{"duncan; reboot"}))
	assert.Error(t, v.ValidateHosts([]string{"@web"}))
}
