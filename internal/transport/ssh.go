package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHTimeout = 10 * time.Second

// Endpoint 解析后的 SSH 连接目标
type Endpoint struct {
	Alias         string   // 用户给出的主机名或别名
	Hostname      string   // 实际连接地址
	Port          int
	User          string
	IdentityFiles []string
}

// Address 返回 host:port
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Hostname, strconv.Itoa(e.Port))
}

// Identity 返回 user@alias，非默认端口时追加 :port
func (e Endpoint) Identity() string {
	id := e.Alias
	if e.User != "" {
		id = e.User + "@" + id
	}
	if e.Port != 0 && e.Port != 22 {
		id += ":" + strconv.Itoa(e.Port)
	}
	return id
}

// SSH 通过 SSH 会话在远程主机执行命令
type SSH struct {
	endpoint Endpoint
	client   *ssh.Client
	agent    net.Conn // ssh-agent 连接，未使用 agent 时为 nil
	logger   *logrus.Logger
	out      io.Writer
	noSudo   bool
	dir      string
}

// ResolveEndpoint 结合 ssh_config 解析主机别名
//
// host 支持 "alias" 和 "user@alias" 两种写法；命令行/配置中的显式值
// 优先于 ssh_config。
func ResolveEndpoint(host string, cfg SSHConfig) (Endpoint, error) {
	endpoint := Endpoint{Alias: host, Hostname: host}

	if at := strings.LastIndex(host, "@"); at >= 0 {
		endpoint.User = host[:at]
		endpoint.Alias = host[at+1:]
		endpoint.Hostname = endpoint.Alias
	}

	if cfg.ConfigFile != "" {
		sshCfg, err := loadSSHConfig(cfg.ConfigFile)
		if err != nil {
			return endpoint, err
		}
		if sshCfg != nil {
			if hostname, err := sshCfg.Get(endpoint.Alias, "HostName"); err == nil && hostname != "" {
				endpoint.Hostname = hostname
			}
			if endpoint.User == "" {
				if user, err := sshCfg.Get(endpoint.Alias, "User"); err == nil && user != "" {
					endpoint.User = user
				}
			}
			if port, err := sshCfg.Get(endpoint.Alias, "Port"); err == nil && port != "" {
				if p, err := strconv.Atoi(port); err == nil {
					endpoint.Port = p
				}
			}
			if files, err := sshCfg.GetAll(endpoint.Alias, "IdentityFile"); err == nil {
				for _, file := range files {
					if file != "" {
						endpoint.IdentityFiles = append(endpoint.IdentityFiles, expandHome(file))
					}
				}
			}
		}
	}

	if endpoint.User == "" {
		endpoint.User = cfg.User
	}
	if endpoint.User == "" {
		endpoint.User = os.Getenv("USER")
	}
	if endpoint.Port == 0 {
		endpoint.Port = cfg.Port
	}
	if endpoint.Port == 0 {
		endpoint.Port = 22
	}
	for _, file := range cfg.IdentityFiles {
		endpoint.IdentityFiles = append(endpoint.IdentityFiles, expandHome(file))
	}

	return endpoint, nil
}

// loadSSHConfig 读取 ssh_config，文件不存在时返回 nil
func loadSSHConfig(path string) (*ssh_config.Config, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取 ssh 配置失败: %w", err)
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析 ssh 配置 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// DialSSH 建立 SSH 连接
func DialSSH(ctx context.Context, host string, cfg Config, logger *logrus.Logger) (*SSH, error) {
	endpoint, err := ResolveEndpoint(host, cfg.SSH)
	if err != nil {
		return nil, err
	}

	clientConfig, agentConn, err := clientConfig(endpoint, cfg.SSH, logger)
	if err != nil {
		return nil, err
	}
	closeAgent := func() {
		if agentConn != nil {
			agentConn.Close()
		}
	}

	logger.Debugf("连接 %s@%s (%s)", endpoint.User, endpoint.Alias, endpoint.Address())

	dialer := net.Dialer{Timeout: clientConfig.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		closeAgent()
		return nil, fmt.Errorf("连接 %s 失败: %w", endpoint.Address(), err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, endpoint.Address(), clientConfig)
	if err != nil {
		conn.Close()
		closeAgent()
		return nil, fmt.Errorf("SSH 握手失败 (%s): %w", endpoint.Alias, err)
	}

	return &SSH{
		endpoint: endpoint,
		client:   ssh.NewClient(c, chans, reqs),
		agent:    agentConn,
		logger:   logger,
		out:      cfg.Output,
		noSudo:   cfg.NoSudo,
	}, nil
}

// clientConfig 组装认证方式与主机密钥校验
//
// 使用 ssh-agent 时同时返回 agent 连接，由调用方负责关闭。
func clientConfig(endpoint Endpoint, cfg SSHConfig, logger *logrus.Logger) (*ssh.ClientConfig, net.Conn, error) {
	var (
		auths     []ssh.AuthMethod
		agentConn net.Conn
	)
	fail := func(err error) (*ssh.ClientConfig, net.Conn, error) {
		if agentConn != nil {
			agentConn.Close()
		}
		return nil, nil, err
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentConn = conn
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			logger.Debugf("无法连接 ssh-agent: %v", err)
		}
	}

	var signers []ssh.Signer
	for _, file := range endpoint.IdentityFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Debugf("跳过私钥 %s: %v", file, err)
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			logger.Warnf("无法解析私钥 %s（可能带有密码）: %v", file, err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		auths = append(auths, ssh.PublicKeys(signers...))
	}

	if len(auths) == 0 {
		return fail(fmt.Errorf("没有可用的 SSH 认证方式，请启动 ssh-agent 或配置 identity_files"))
	}

	callback, err := hostKeyCallback(cfg)
	if err != nil {
		return fail(err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSSHTimeout
	}

	return &ssh.ClientConfig{
		User:            endpoint.User,
		Auth:            auths,
		HostKeyCallback: callback,
		Timeout:         timeout,
	}, agentConn, nil
}

func hostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHostsFile
	if path == "" {
		path = "~/.ssh/known_hosts"
	}

	callback, err := knownhosts.New(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("加载 known_hosts 失败: %w", err)
	}
	return callback, nil
}

// Host 返回 user@alias 形式的主机标识
func (s *SSH) Host() string {
	return s.endpoint.Identity()
}

// Endpoint 返回解析后的连接目标
func (s *SSH) Endpoint() Endpoint {
	return s.endpoint
}

// Execute 在新的 SSH 会话中执行命令
func (s *SSH) Execute(ctx context.Context, command string, opts ExecOptions) (*Result, error) {
	full := BuildCommand(command, opts, s.dir, s.noSudo)
	s.logger.Debugf("[%s] 执行命令: %s", s.Host(), full)

	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("[%s] 创建 SSH 会话失败: %w", s.Host(), err)
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() {
		done <- session.Run(full)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("[%s] 远程命令执行异常: %w", s.Host(), err)
		}
		exitCode = exitErr.ExitStatus()
	}

	s.logger.Debugf("[%s] 退出码: %d", s.Host(), exitCode)
	return finish(s.Host(), full, exitCode, output.String(), opts, s.out)
}

// PathExists 检查远程路径是否存在
func (s *SSH) PathExists(ctx context.Context, path string, sudo bool) (bool, error) {
	result, err := s.Execute(ctx, pathTestCommand(path), ExecOptions{Quiet: true, WarnOnly: true, Sudo: sudo})
	if err != nil {
		return false, err
	}
	return result.Succeeded, nil
}

// WithDir 返回共享同一连接、工作目录不同的派生通道
func (s *SSH) WithDir(dir string) Transport {
	derived := *s
	derived.dir = dir
	return &derived
}

// Close 关闭底层连接与 ssh-agent 连接
func (s *SSH) Close() error {
	err := s.client.Close()
	if s.agent != nil {
		if agentErr := s.agent.Close(); err == nil {
			err = agentErr
		}
	}
	return err
}

// expandHome 展开路径开头的 ~
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
