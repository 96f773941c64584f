package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/ssh"
	"github.com/sshcollectorpro/switchinfo/simulate"
)

func simTarget(srv *simulate.Server) model.DeviceTarget {
	host, port := srv.HostPort()
	t := testTarget()
	t.Host, t.Port = host, port
	return t
}

func sshTestConfig() config.SSHConfig {
	return config.SSHConfig{
		ConnectTimeout:   3 * time.Second,
		CommandTimeout:   3 * time.Second,
		DisablePagingCmd: "terminal length 0",
	}
}

func TestSSHShellSessionPerCommand(t *testing.T) {
	srv := startSwitch(t)
	log, _ := test.NewNullLogger()
	sh := NewSSHShell(simTarget(srv), sshTestConfig(), false, log)
	defer sh.Close()

	ctx := context.Background()
	out, err := sh.Execute(ctx, "sh clock")
	require.NoError(t, err)
	assert.Equal(t, "*10:00:00.000 UTC Mon Mar 1 2024", out)

	_, err = sh.Execute(ctx, "sh ver")
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Shells())
}

func TestSSHShellReuseSession(t *testing.T) {
	srv := startSwitch(t)
	log, _ := test.NewNullLogger()
	sh := NewSSHShell(simTarget(srv), sshTestConfig(), true, log)

	ctx := context.Background()
	for _, cmd := range []string{"sh ver", "sh clock", "sh ip int br"} {
		_, err := sh.Execute(ctx, cmd)
		require.NoError(t, err)
	}
	require.NoError(t, sh.Close())
	assert.Equal(t, 1, srv.Shells())
	assert.Equal(t, []string{"enable", "terminal length 0", "sh ver", "sh clock", "sh ip int br"}, srv.Received())
}

func TestSSHShellReuseReconnectsDroppedConnection(t *testing.T) {
	srv := startSwitch(t)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	sh := NewSSHShell(simTarget(srv), sshTestConfig(), true, log)
	defer sh.Close()

	ctx := context.Background()
	_, err := sh.Execute(ctx, "sh ver")
	require.NoError(t, err)
	require.NotNil(t, sh.client)
	assert.True(t, sh.client.IsConnected())

	// 模拟设备侧断开
	require.NoError(t, sh.client.Close())

	out, err := sh.Execute(ctx, "sh clock")
	require.NoError(t, err)
	assert.Equal(t, "*10:00:00.000 UTC Mon Mar 1 2024", out)
	assert.Equal(t, 2, srv.Shells())

	var warned bool
	hostnames := make([]interface{}, 0)
	for _, e := range hook.AllEntries() {
		switch e.Message {
		case "SSH connection lost; reconnecting":
			warned = true
		case "SSH session established":
			hostnames = append(hostnames, e.Data["hostname"])
		}
	}
	assert.True(t, warned)
	assert.Equal(t, []interface{}{"Switch", "Switch"}, hostnames)
}

func TestSSHShellAuthFailure(t *testing.T) {
	srv := startSwitch(t)
	log, _ := test.NewNullLogger()
	target := simTarget(srv)
	target.Password = "wrong"
	sh := NewSSHShell(target, sshTestConfig(), false, log)

	_, err := sh.Execute(context.Background(), "sh ver")
	require.Error(t, err)
	assert.ErrorIs(t, err, ssh.ErrAuthFailed)
}

func TestSSHShellWrongSecret(t *testing.T) {
	srv := startSwitch(t)
	log, _ := test.NewNullLogger()
	target := simTarget(srv)
	target.Secret = "nope"
	sh := NewSSHShell(target, sshTestConfig(), false, log)

	_, err := sh.Execute(context.Background(), "sh ver")
	require.Error(t, err)
	assert.ErrorIs(t, err, ssh.ErrEnableFailed)
}
