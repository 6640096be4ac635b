package config

import "time"

// Config sparks 配置
type Config struct {
	Hosts    []string            `mapstructure:"hosts" validate:"dive,hostref"`
	Groups   map[string][]string `mapstructure:"groups" validate:"dive,keys,groupname,endkeys,min=1,dive,hostname_or_alias"`
	Bundles  map[string][]string `mapstructure:"bundles" validate:"dive,keys,groupname,endkeys,min=1,dive,packagename"`
	Parallel int                 `mapstructure:"parallel" validate:"min=1,max=256"`
	Quiet    bool                `mapstructure:"quiet"`
	Silent   bool                `mapstructure:"silent"`
	Verbose  bool                `mapstructure:"verbose"`
	Sudo     SudoConfig          `mapstructure:"sudo"`
	SSH      SSHConfig           `mapstructure:"ssh"`
}

// SudoConfig sudo 相关配置
type SudoConfig struct {
	Disabled bool `mapstructure:"disabled"` // 以当前用户直接执行
}

// SSHConfig SSH 连接配置
type SSHConfig struct {
	ConfigFile            string        `mapstructure:"config_file"`
	User                  string        `mapstructure:"user"`
	Port                  int           `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	IdentityFiles         []string      `mapstructure:"identity_files"`
	KnownHostsFile        string        `mapstructure:"known_hosts_file"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	Timeout               time.Duration `mapstructure:"timeout" validate:"min=0"`
}

const (
	// DefaultParallel 默认并发主机数
	DefaultParallel = 10

	// DefaultSSHTimeout 默认连接超时
	DefaultSSHTimeout = 10 * time.Second

	// EnvPrefix 环境变量前缀，如 SPARKS_PARALLEL
	EnvPrefix = "SPARKS"

	// GroupPrefix 主机组与包集合的引用前缀，如 @servers
	GroupPrefix = "@"
)
