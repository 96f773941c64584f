package ssh

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/switchinfo/internal/util"
)

// 首个提示符迟迟未出现时，每隔该时长发送一次回车诱发提示符
const promptNudgeInterval = time.Second

// Shell 交互式 PTY 会话：一个提示符对应一次命令往返
type Shell struct {
	session  *ssh.Session
	stdin    io.WriteCloser
	chunks   chan []byte
	done     chan struct{}
	pending  []byte
	suffixes []string
	timeout  time.Duration

	hostname string
	prompt   string
}

// OpenShell 打开 PTY Shell，等待首个提示符，按需进入特权模式并关闭分页
func (c *Client) OpenShell(ctx context.Context) (*Shell, error) {
	session, err := c.newSessionWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// 宽终端避免长命令回显被折行
	var ptyErr error
	for _, term := range []string{"vt100", "xterm", "dumb"} {
		if ptyErr = session.RequestPty(term, 24, 511, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		return nil, fmt.Errorf("failed to request pty: %w", ptyErr)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	s := &Shell{
		session:  session,
		stdin:    stdin,
		chunks:   make(chan []byte, 256),
		done:     make(chan struct{}),
		suffixes: c.config.PromptSuffixes,
		timeout:  c.config.CommandTimeout,
	}
	go s.readLoop(stdout)

	if err := s.waitFirstPrompt(ctx, c.config.ConnectTimeout); err != nil {
		s.Close()
		return nil, err
	}

	c.mutex.RLock()
	secret := ""
	if c.info != nil {
		secret = c.info.EnableSecret
	}
	c.mutex.RUnlock()

	if !c.config.SkipEnable {
		if err := s.enable(ctx, secret); err != nil {
			s.Close()
			return nil, err
		}
	}
	if cmd := strings.TrimSpace(c.config.DisablePagingCmd); cmd != "" {
		if _, err := s.Run(ctx, cmd); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to disable paging: %w", err)
		}
	}
	return s, nil
}

func (s *Shell) readLoop(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Prompt 当前提示符，例如 "Router#"
func (s *Shell) Prompt() string {
	return s.prompt
}

// Hostname 从提示符中提取的主机名
func (s *Shell) Hostname() string {
	return s.hostname
}

// Privileged 是否处于特权模式
func (s *Shell) Privileged() bool {
	return strings.HasSuffix(s.prompt, "#")
}

// Run 发送一条命令并返回提示符之前的输出（去掉命令回显与结尾提示符）
func (s *Shell) Run(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	s.discardPending()
	if err := s.send(command); err != nil {
		return "", err
	}

	var body string
	_, err := s.expect(ctx, s.timeout, func(text string) bool {
		out, ok := s.extractOutput(text, command)
		if ok {
			body = out
		}
		return ok
	})
	if err != nil {
		return "", fmt.Errorf("command %q: %w", command, err)
	}
	return body, nil
}

// Close 退出并关闭会话
func (s *Shell) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	_, _ = s.stdin.Write([]byte("exit\n"))
	close(s.done)
	_ = s.stdin.Close()
	err := s.session.Close()
	if err == io.EOF {
		err = nil
	}
	return err
}

func (s *Shell) send(line string) error {
	if _, err := s.stdin.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write to shell: %w", err)
	}
	return nil
}

// discardPending 丢弃上一条命令之后残留的输出
func (s *Shell) discardPending() {
	s.pending = s.pending[:0]
	for {
		select {
		case _, ok := <-s.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// expectWithNudge 累积输出直到 done 返回 true；nudge > 0 时在静默期发送回车
func (s *Shell) expectWithNudge(ctx context.Context, timeout, nudge time.Duration, done func(string) bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var nudgeC <-chan time.Time
	if nudge > 0 {
		ticker := time.NewTicker(nudge)
		defer ticker.Stop()
		nudgeC = ticker.C
	}

	for {
		text := util.CleanTerminalOutput(s.pending)
		if done(text) {
			s.pending = s.pending[:0]
			return text, nil
		}
		select {
		case <-ctx.Done():
			return text, ctx.Err()
		case <-timer.C:
			return text, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-nudgeC:
			if len(s.pending) == 0 {
				_ = s.send("")
			}
		case chunk, ok := <-s.chunks:
			if !ok {
				return text, io.EOF
			}
			s.pending = append(s.pending, chunk...)
		}
	}
}

func (s *Shell) expect(ctx context.Context, timeout time.Duration, done func(string) bool) (string, error) {
	return s.expectWithNudge(ctx, timeout, 0, done)
}

func (s *Shell) waitFirstPrompt(ctx context.Context, timeout time.Duration) error {
	_, err := s.expectWithNudge(ctx, timeout, promptNudgeInterval, func(text string) bool {
		line := lastLine(text)
		if !s.isPrompt(line) {
			return false
		}
		s.setPrompt(line)
		return true
	})
	if err != nil {
		return fmt.Errorf("waiting for prompt: %w", err)
	}
	return nil
}

// enable 用户模式下发送 enable 与密码，要求最终提示符以 # 结尾
func (s *Shell) enable(ctx context.Context, secret string) error {
	if s.Privileged() {
		return nil
	}
	if secret == "" {
		return fmt.Errorf("%w: no enable secret configured", ErrEnableFailed)
	}
	if err := s.send("enable"); err != nil {
		return err
	}

	askedPassword := false
	_, err := s.expect(ctx, s.timeout, func(text string) bool {
		line := lastLine(text)
		if strings.HasSuffix(strings.ToLower(line), "password:") {
			askedPassword = true
			return true
		}
		// 未见到 enable 回显前出现的提示符是残留输出
		if s.isPrompt(line) && strings.Contains(text, "enable") {
			s.setPrompt(line)
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("enable: %w", err)
	}

	if askedPassword {
		if err := s.send(secret); err != nil {
			return err
		}
		_, err = s.expect(ctx, s.timeout, func(text string) bool {
			line := lastLine(text)
			if s.isPrompt(line) {
				s.setPrompt(line)
				return true
			}
			return false
		})
		if err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}

	if !s.Privileged() {
		return fmt.Errorf("%w: prompt is still %q", ErrEnableFailed, s.prompt)
	}
	return nil
}

// isPrompt 提示符：不含空白、以配置的后缀结尾；已知主机名时还要求以主机名开头
func (s *Shell) isPrompt(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 128 || strings.ContainsAny(line, " \t") {
		return false
	}
	matched := false
	for _, suf := range s.suffixes {
		if suf != "" && strings.HasSuffix(line, suf) && len(line) > len(suf) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return s.hostname == "" || strings.HasPrefix(line, s.hostname)
}

func (s *Shell) setPrompt(line string) {
	line = strings.TrimSpace(line)
	s.prompt = line
	if s.hostname != "" {
		return
	}
	base := line
	for _, suf := range s.suffixes {
		if suf != "" && strings.HasSuffix(base, suf) {
			base = strings.TrimSuffix(base, suf)
			break
		}
	}
	// hostname(config)# 之类的模式提示符只保留主机名部分
	if i := strings.IndexByte(base, '('); i > 0 {
		base = base[:i]
	}
	s.hostname = base
}

// extractOutput 在累积输出中定位命令回显行，并截取其后直到结尾提示符的内容
func (s *Shell) extractOutput(text, command string) (string, bool) {
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	if last < 1 || !s.isPrompt(lines[last]) {
		return "", false
	}
	echo := -1
	for i := 0; i < last; i++ {
		if s.isEcho(lines[i], command) {
			echo = i
			break
		}
	}
	if echo < 0 {
		return "", false
	}
	s.prompt = strings.TrimSpace(lines[last])
	body := lines[echo+1 : last]
	for i := range body {
		body[i] = strings.TrimRight(body[i], " \t")
	}
	return strings.TrimRight(strings.Join(body, "\n"), "\n"), true
}

func (s *Shell) isEcho(line, command string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasSuffix(line, command) {
		return false
	}
	prefix := strings.TrimSpace(strings.TrimSuffix(line, command))
	return prefix == "" || s.isPrompt(prefix)
}

func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return strings.TrimSpace(text)
}
