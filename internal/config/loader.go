package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
	"github.com/bbq191/sparks-go/internal/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// SetDefaults 设置默认值并启用环境变量
func SetDefaults(v *viper.Viper) {
	v.SetDefault("parallel", DefaultParallel)
	v.SetDefault("ssh.config_file", "~/.ssh/config")
	v.SetDefault("ssh.timeout", DefaultSSHTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal 只读取已知的键，没有默认值的键需要显式绑定环境变量
	for _, key := range envKeys {
		v.BindEnv(key)
	}
}

var envKeys = []string{
	"hosts", "quiet", "silent", "verbose", "sudo.disabled",
	"ssh.user", "ssh.port", "ssh.identity_files", "ssh.known_hosts_file", "ssh.insecure_ignore_host_key",
}

// Load 从 viper 中解析并验证配置
func Load(v *viper.Viper, logger *logrus.Logger) (*Config, error) {
	logger.Debug("开始加载配置")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	postProcess(cfg)

	if err := NewValidator(logger).Validate(cfg); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debugf("已加载配置文件: %s", used)
	}
	return cfg, nil
}

// postProcess 展开路径中的 ~
func postProcess(cfg *Config) {
	cfg.SSH.ConfigFile = expandPath(cfg.SSH.ConfigFile)
	cfg.SSH.KnownHostsFile = expandPath(cfg.SSH.KnownHostsFile)
	for i, file := range cfg.SSH.IdentityFiles {
		cfg.SSH.IdentityFiles[i] = expandPath(file)
	}
}

func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ResolveHosts 确定目标主机
//
// args 为空时使用配置中的 hosts，两者都为空时为 localhost。
// @name 展开为 groups 中的同名主机组。
func (c *Config) ResolveHosts(args []string) ([]string, error) {
	if len(args) == 0 {
		args = c.Hosts
	}
	if len(args) == 0 {
		return []string{"localhost"}, nil
	}

	hosts, err := expand(args, c.Groups, "主机组")
	if err != nil {
		return nil, err
	}
	return hosts, nil
}

// ExpandPackages 展开 @name 包集合，并按空白拆分
func (c *Config) ExpandPackages(args []string) ([]string, error) {
	pkgs, err := expand(pkgmgr.Normalize(args...), c.Bundles, "包集合")
	if err != nil {
		return nil, err
	}
	return pkgmgr.Normalize(pkgs...), nil
}

func expand(items []string, sets map[string][]string, kind string) ([]string, error) {
	var expanded []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			if !strings.HasPrefix(part, GroupPrefix) {
				expanded = append(expanded, part)
				continue
			}

			name := strings.TrimPrefix(part, GroupPrefix)
			members, ok := sets[name]
			if !ok {
				return nil, fmt.Errorf("未定义的%s: %s", kind, name)
			}
			expanded = append(expanded, members...)
		}
	}
	return expanded, nil
}

// TransportConfig 生成执行通道配置
func (c *Config) TransportConfig(out io.Writer) transport.Config {
	return transport.Config{
		NoSudo: c.Sudo.Disabled,
		Output: out,
		SSH: transport.SSHConfig{
			ConfigFile:            c.SSH.ConfigFile,
			User:                  c.SSH.User,
			Port:                  c.SSH.Port,
			IdentityFiles:         c.SSH.IdentityFiles,
			KnownHostsFile:        c.SSH.KnownHostsFile,
			InsecureIgnoreHostKey: c.SSH.InsecureIgnoreHostKey,
			Timeout:               c.SSH.Timeout,
		},
	}
}

// BackendOptions 生成后端构造选项
func (c *Config) BackendOptions(observer pkgmgr.Observer) pkgmgr.Options {
	return pkgmgr.Options{Quiet: c.Quiet, Observer: observer}
}
