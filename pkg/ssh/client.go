package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config SSH配置
type Config struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	// PromptSuffixes 提示符后缀，默认 ">" 与 "#"
	PromptSuffixes []string `yaml:"prompt_suffixes"`
	// DisablePagingCmd 进入特权模式后发送的关闭分页命令
	DisablePagingCmd string `yaml:"disable_paging_cmd"`
	// SkipEnable 平台无需 enable（如华为、H3C 用户视图）
	SkipEnable bool `yaml:"skip_enable"`
}

// ConnectionInfo SSH连接信息
type ConnectionInfo struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	EnableSecret string `json:"-"`
}

var (
	// ErrNotConnected 连接尚未建立或已关闭
	ErrNotConnected = errors.New("SSH connection not established")
	// ErrAuthFailed 设备拒绝用户名/密码
	ErrAuthFailed = errors.New("ssh authentication failed")
	// ErrEnableFailed enable 密码错误或未进入特权模式
	ErrEnableFailed = errors.New("failed to enter privileged mode")
	// ErrTimeout 等待提示符或命令输出超时
	ErrTimeout = errors.New("timed out waiting for device")
)

// Client SSH客户端
type Client struct {
	config     *Config
	connection *ssh.Client
	mutex      sync.RWMutex
	info       *ConnectionInfo
	stop       chan struct{}
}

// NewClient 创建SSH客户端
func NewClient(config *Config) *Client {
	cfg := *config
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if len(cfg.PromptSuffixes) == 0 {
		cfg.PromptSuffixes = []string{">", "#"}
	}
	return &Client{config: &cfg}
}

// clientConfig 兼容旧设备的算法列表
func (c *Client) clientConfig(info *ConnectionInfo) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            info.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.ConnectTimeout,
		Config: ssh.Config{
			KeyExchanges: []string{
				"curve25519-sha256",
				"curve25519-sha256@libssh.org",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"diffie-hellman-group1-sha1",
			},
			Ciphers: []string{
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"chacha20-poly1305@openssh.com",
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-cbc",
				"3des-cbc",
			},
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha1",
				"hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-ed25519",
			"ecdsa-sha2-nistp256",
			"ecdsa-sha2-nistp384",
			"ecdsa-sha2-nistp521",
			"rsa-sha2-256",
			"rsa-sha2-512",
			"ssh-rsa",
		},
		// 同时尝试 password 与 keyboard-interactive，兼容 Cisco/H3C 等设备
		Auth: []ssh.AuthMethod{
			ssh.Password(info.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = info.Password
				}
				return answers, nil
			}),
		},
	}
}

// Connect 连接SSH服务器
func (c *Client) Connect(ctx context.Context, info *ConnectionInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.info = info
	address := net.JoinHostPort(info.Host, fmt.Sprintf("%d", info.Port))

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: dial %s: %v", ErrTimeout, address, err)
		}
		return fmt.Errorf("failed to dial %s: %w", address, err)
	}

	// 握手阶段不受 context 控制，用连接级 deadline 兜底
	_ = conn.SetDeadline(time.Now().Add(c.config.ConnectTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, c.clientConfig(info))
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return fmt.Errorf("%w: %s@%s: %v", ErrAuthFailed, info.Username, address, err)
		}
		if isTimeout(err) {
			return fmt.Errorf("%w: handshake with %s: %v", ErrTimeout, address, err)
		}
		return fmt.Errorf("failed to create SSH connection: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	c.connection = ssh.NewClient(sshConn, chans, reqs)
	c.stop = make(chan struct{})
	go c.keepAlive(c.connection, c.stop)
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// newSessionWithRetry 创建会话（带重试）
// 部分设备登录后立即打开通道会返回 "administratively prohibited"，短暂退避后重试
func (c *Client) newSessionWithRetry(ctx context.Context) (*ssh.Session, error) {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	backoffs := []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond, time.Second}
	var lastErr error
	for _, d := range backoffs {
		if d > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}
		sess, err := conn.NewSession()
		if err == nil {
			return sess, nil
		}
		lastErr = err
		if !strings.Contains(strings.ToLower(err.Error()), "prohibited") {
			break
		}
	}
	return nil, lastErr
}

// Close 关闭SSH连接
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.connection != nil {
		err := c.connection.Close()
		c.connection = nil
		return err
	}
	return nil
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return false
	}
	// 轻量级健康检查：只发全局请求，不占用设备的会话数
	_, _, err := conn.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

// keepAlive 保持连接活跃
func (c *Client) keepAlive(conn *ssh.Client, stop <-chan struct{}) {
	if c.config.KeepAlive <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := conn.SendRequest("keepalive@openssh.com", false, nil); err != nil {
				return
			}
		}
	}
}
