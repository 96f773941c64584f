package ssh

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/switchinfo/simulate"
)

const versionOutput = "Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.2(2)E6, RELEASE SOFTWARE (fc1)\n" +
	"Switch uptime is 1 week, 2 days"

func startDevice(t *testing.T) *simulate.Server {
	t.Helper()
	cfg := simulate.DefaultConfig()
	cfg.Banner = "Authorized access only"
	cfg.Commands = []simulate.CommandOutput{
		{Command: "show version", Output: versionOutput},
		{Command: "show running-config", Output: "!\nhostname Switch\n!\nend\n", Privileged: true},
		{Command: "show clock", Output: "*10:00:00.000 UTC Mon Mar 1 2024", Delay: 2 * time.Second},
	}
	srv, err := simulate.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func connectionInfo(srv *simulate.Server) *ConnectionInfo {
	host, port := srv.HostPort()
	return &ConnectionInfo{Host: host, Port: port, Username: "admin", Password: "admin", EnableSecret: "enable"}
}

func testConfig() *Config {
	return &Config{
		ConnectTimeout:   3 * time.Second,
		CommandTimeout:   3 * time.Second,
		DisablePagingCmd: "terminal length 0",
	}
}

func TestShellRun(t *testing.T) {
	srv := startDevice(t)
	ctx := context.Background()

	client := NewClient(testConfig())
	require.NoError(t, client.Connect(ctx, connectionInfo(srv)))
	defer client.Close()
	assert.True(t, client.IsConnected())

	shell, err := client.OpenShell(ctx)
	require.NoError(t, err)
	defer shell.Close()

	assert.Equal(t, "Switch#", shell.Prompt(), "应进入特权模式")
	assert.Equal(t, "Switch", shell.Hostname())

	out, err := shell.Run(ctx, "sh ver")
	require.NoError(t, err)
	assert.Equal(t, versionOutput, out)

	out, err = shell.Run(ctx, "show run")
	require.NoError(t, err)
	assert.Equal(t, "!\nhostname Switch\n!\nend", out)

	out, err = shell.Run(ctx, "show bogus")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid input")

	assert.Equal(t, []string{"enable", "terminal length 0", "sh ver", "show run", "show bogus"}, srv.Received())
	assert.Equal(t, 1, srv.Shells())
}

func TestConnectAuthFailure(t *testing.T) {
	srv := startDevice(t)
	info := connectionInfo(srv)
	info.Password = "wrong"

	client := NewClient(testConfig())
	err := client.Connect(context.Background(), info)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthFailed), "错误应可识别为认证失败: %v", err)
	assert.False(t, client.IsConnected())
}

func TestOpenShellWrongEnableSecret(t *testing.T) {
	srv := startDevice(t)
	info := connectionInfo(srv)
	info.EnableSecret = "nope"

	client := NewClient(testConfig())
	require.NoError(t, client.Connect(context.Background(), info))
	defer client.Close()

	_, err := client.OpenShell(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnableFailed), "%v", err)
}

func TestOpenShellSkipEnable(t *testing.T) {
	srv := startDevice(t)
	cfg := testConfig()
	cfg.SkipEnable = true
	cfg.DisablePagingCmd = ""

	client := NewClient(cfg)
	require.NoError(t, client.Connect(context.Background(), connectionInfo(srv)))
	defer client.Close()

	shell, err := client.OpenShell(context.Background())
	require.NoError(t, err)
	defer shell.Close()
	assert.Equal(t, "Switch>", shell.Prompt())
	assert.False(t, shell.Privileged())

	out, err := shell.Run(context.Background(), "show version")
	require.NoError(t, err)
	assert.Equal(t, versionOutput, out)
	assert.Equal(t, []string{"show version"}, srv.Received())
}

func TestShellRunTimeout(t *testing.T) {
	srv := startDevice(t)
	cfg := testConfig()
	cfg.CommandTimeout = 300 * time.Millisecond

	client := NewClient(cfg)
	require.NoError(t, client.Connect(context.Background(), connectionInfo(srv)))
	defer client.Close()

	shell, err := client.OpenShell(context.Background())
	require.NoError(t, err)
	defer shell.Close()

	_, err = shell.Run(context.Background(), "show clock")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "%v", err)
}

func TestConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	client := NewClient(testConfig())
	err = client.Connect(context.Background(), &ConnectionInfo{Host: "127.0.0.1", Port: addr.Port, Username: "a", Password: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuthFailed))

	_, err = client.OpenShell(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
}
