package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/addone/interact"
	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/ssh"
)

// RemoteShell 对单台设备执行一条命令并返回文本输出
type RemoteShell interface {
	Execute(ctx context.Context, command string) (string, error)
	Close() error
}

// SSHShell 基于 pkg/ssh 的 RemoteShell
// 默认每条命令独立建立会话（连接、认证、enable、关闭分页、执行、断开）；reuse 为 true 时整个序列共用一个会话
type SSHShell struct {
	cfg   *ssh.Config
	info  *ssh.ConnectionInfo
	reuse bool
	log   *logrus.Logger

	client *ssh.Client
	shell  *ssh.Shell
}

// NewSSHShell 创建 SSH RemoteShell
// 提示符后缀、关闭分页命令与命令超时未配置时取 device_type 对应的平台默认值
func NewSSHShell(target model.DeviceTarget, sshCfg config.SSHConfig, reuse bool, log *logrus.Logger) *SSHShell {
	plugin := interact.Get(target.DeviceType)
	profile := plugin.Profile().Merge(sshCfg.PromptSuffixes, sshCfg.DisablePagingCmd, sshCfg.CommandTimeout)
	log.WithFields(logrus.Fields{
		"device_type": target.DeviceType,
		"platform":    plugin.Name(),
		"paging_cmd":  profile.DisablePagingCmd,
	}).Debug("SSH platform profile selected")
	return &SSHShell{
		cfg: &ssh.Config{
			ConnectTimeout:   sshCfg.ConnectTimeout,
			CommandTimeout:   profile.CommandTimeout,
			KeepAlive:        sshCfg.KeepAliveInterval,
			PromptSuffixes:   profile.PromptSuffixes,
			DisablePagingCmd: profile.DisablePagingCmd,
			SkipEnable:       !profile.EnableRequired,
		},
		info: &ssh.ConnectionInfo{
			Host:         target.Host,
			Port:         target.EffectivePort(),
			Username:     target.Username,
			Password:     target.Password,
			EnableSecret: target.Secret,
		},
		reuse: reuse,
		log:   log,
	}
}

func (s *SSHShell) open(ctx context.Context) error {
	if s.shell != nil {
		if s.client.IsConnected() {
			return nil
		}
		// 复用模式下连接被设备断开，重新建立会话
		s.log.WithField("host", s.info.Host).Warn("SSH connection lost; reconnecting")
		_ = s.Close()
	}
	client := ssh.NewClient(s.cfg)
	if err := client.Connect(ctx, s.info); err != nil {
		return err
	}
	shell, err := client.OpenShell(ctx)
	if err != nil {
		client.Close()
		return err
	}
	s.client, s.shell = client, shell
	s.log.WithFields(logrus.Fields{
		"host":     s.info.Host,
		"hostname": shell.Hostname(),
		"prompt":   shell.Prompt(),
	}).Debug("SSH session established")
	return nil
}

// Execute 执行一条命令
func (s *SSHShell) Execute(ctx context.Context, command string) (string, error) {
	if err := s.open(ctx); err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	out, err := s.shell.Run(ctx, command)
	// 出错后会话状态不可信，非复用模式本就每次关闭
	if err != nil || !s.reuse {
		if cerr := s.Close(); cerr != nil {
			s.log.WithError(cerr).WithField("host", s.info.Host).Debug("SSH session close failed")
		}
	}
	return out, err
}

// Close 关闭当前会话与连接
func (s *SSHShell) Close() error {
	var err error
	if s.shell != nil {
		err = s.shell.Close()
		s.shell = nil
	}
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
		s.client = nil
	}
	return err
}
