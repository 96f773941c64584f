// Package simulate 提供一个 Cisco 风格的 SSH 模拟设备，用于联调与测试
package simulate

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/switchinfo/pkg/logger"
)

const invalidInput = "% Invalid input detected at '^' marker.\r\n"

// Server 模拟设备 SSH 服务
type Server struct {
	cfg      *Config
	log      *logrus.Logger
	hostKey  ssh.Signer
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	shells   int
	received []string
}

// New 创建模拟设备；log 为 nil 时丢弃日志
func New(cfg *Config, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logger.Discard()
	}
	signer, err := hostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init host key: %w", err)
	}
	return &Server{cfg: cfg, log: log, hostKey: signer, quit: make(chan struct{})}, nil
}

// hostKey 指定路径时持久化 RSA 密钥（避免客户端指纹变化），否则生成临时 ECDSA 密钥
func hostKey(path string) (ssh.Signer, error) {
	if path == "" {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		return ssh.NewSignerFromKey(key)
	}
	if bs, err := os.ReadFile(path); err == nil {
		if signer, err := ssh.ParsePrivateKey(bs); err == nil {
			return signer, nil
		}
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write host key: %w", err)
	}
	return ssh.ParsePrivateKey(pemBytes)
}

// Start 开始监听
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.WithField("addr", ln.Addr().String()).Info("Simulate: listener started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
			}(conn)
		}
	}()
	return nil
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HostPort 拆分后的监听地址
func (s *Server) HostPort() (string, int) {
	addr, ok := s.listener.Addr().(*net.TCPAddr)
	if !ok {
		return "", 0
	}
	return addr.IP.String(), addr.Port
}

// Stop 停止服务并等待所有会话退出
func (s *Server) Stop() {
	select {
	case <-s.quit:
		return
	default:
	}
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	s.log.Info("Simulate: server stopped")
}

// Shells 已打开的交互会话数
func (s *Server) Shells() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shells
}

// Received 收到的命令（含 enable / terminal length 等）
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *Server) record(cmd string) {
	s.mu.Lock()
	s.received = append(s.received, cmd)
	s.mu.Unlock()
}

func (s *Server) handleConn(nc net.Conn) {
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if meta.User() == s.cfg.Username && string(password) == s.cfg.Password {
				return nil, nil
			}
			s.log.WithField("user", meta.User()).Debug("Simulate: auth failed (password)")
			return nil, errors.New("access denied")
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "", []string{"Password: "}, []bool{false})
			if err != nil {
				return nil, err
			}
			if meta.User() == s.cfg.Username && len(answers) == 1 && answers[0] == s.cfg.Password {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		s.log.WithError(err).Debug("Simulate: SSH handshake failed")
		_ = nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.quit:
			_ = conn.Close()
		case <-closed:
		}
	}()

	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(channel, requests)
		}()
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req", "env", "window-change":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)
			s.mu.Lock()
			s.shells++
			s.mu.Unlock()
			s.runShell(channel)
			_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

// terminal 逐字节读取输入并回显，模拟设备侧 PTY
type terminal struct {
	rw     io.ReadWriter
	r      *bufio.Reader
	lastCR bool
}

func (t *terminal) write(s string) {
	_, _ = io.WriteString(t.rw, s)
}

func (t *terminal) readLine(echo bool) (string, error) {
	var line []byte
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return string(line), err
		}
		if b == '\n' && t.lastCR {
			t.lastCR = false
			continue
		}
		t.lastCR = b == '\r'
		switch b {
		case '\r', '\n':
			t.write("\r\n")
			return string(line), nil
		case 0x7f, 0x08:
			if len(line) > 0 {
				line = line[:len(line)-1]
				if echo {
					t.write("\b \b")
				}
			}
		default:
			line = append(line, b)
			if echo {
				t.write(string(b))
			}
		}
	}
}

func (s *Server) runShell(channel ssh.Channel) {
	term := &terminal{rw: channel, r: bufio.NewReader(channel)}
	privileged := false
	prompt := func() {
		suffix := ">"
		if privileged {
			suffix = "#"
		}
		term.write(s.cfg.Hostname + suffix)
	}

	if s.cfg.Banner != "" {
		term.write(ensureCRLF(s.cfg.Banner))
	}
	term.write("\r\n")
	prompt()

	var idle *time.Timer
	if s.cfg.IdleTimeout > 0 {
		idle = time.AfterFunc(s.cfg.IdleTimeout, func() { _ = channel.Close() })
		defer idle.Stop()
	}

	for {
		line, err := term.readLine(true)
		if err != nil {
			return
		}
		if idle != nil {
			idle.Reset(s.cfg.IdleTimeout)
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			prompt()
			continue
		}
		s.record(cmd)
		s.log.WithField("command", cmd).Debug("Simulate: input")

		lower := strings.ToLower(cmd)
		switch {
		case lower == "exit" || lower == "quit" || lower == "logout":
			return
		case lower == "enable" || lower == "en":
			if privileged {
				break
			}
			term.write("Password: ")
			secret, err := term.readLine(false)
			if err != nil {
				return
			}
			if secret == s.cfg.EnableSecret {
				privileged = true
			} else {
				term.write("% Bad secrets\r\n\r\n")
			}
		case lower == "disable":
			privileged = false
		case strings.HasPrefix(lower, "terminal ") || strings.HasPrefix(lower, "term "):
		default:
			out, ok := s.cfg.lookup(cmd)
			if !ok || (out.Privileged && !privileged) {
				term.write(invalidInput)
				break
			}
			if out.Delay > 0 {
				select {
				case <-time.After(out.Delay):
				case <-s.quit:
					return
				}
			}
			if out.Output != "" {
				term.write(ensureCRLF(out.Output))
			}
		}
		prompt()
	}
}

// ensureCRLF 统一为 CRLF 并保证以换行结尾
func ensureCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	return s
}
