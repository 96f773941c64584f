package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/database"
	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/ssh"
	"github.com/sshcollectorpro/switchinfo/simulate"
)

func testConfig() *config.Config {
	return &config.Config{
		Device: testTarget(),
		Collector: config.CollectorConfig{
			Commands:      fiveCommands(),
			FailurePolicy: config.FailFast,
		},
	}
}

func countMessage(hook *test.Hook, msg string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			n++
		}
	}
	return n
}

func TestCollectMissingPasswordStopsBeforeConnecting(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := testConfig()
	cfg.Device.Password = ""

	opened := 0
	svc := NewCollectService(cfg, log,
		WithShellFactory(func(model.DeviceTarget) RemoteShell {
			opened++
			return &fakeShell{}
		}),
		WithStore(newMemStore()),
		WithParser(RawParser{}),
		WithOutput(&bytes.Buffer{}),
	)
	err := svc.Run(context.Background())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"password"}, cfgErr.Missing)
	assert.Equal(t, ExitConfig, ExitCode(err))
	assert.Equal(t, 0, opened, "校验失败不应建立连接")

	assert.Equal(t, 1, countMessage(hook, "Program started"))
	assert.Equal(t, 1, countMessage(hook, "Required environment variables are not set: password"))
	assert.Equal(t, 1, countMessage(hook, "Program stopped"))
	assert.Equal(t, 1, countMessage(hook, "Program shutdown"))
	assert.Equal(t, "Program shutdown", hook.LastEntry().Message)
}

func TestCollectShutdownLoggedOnceAfterTimeout(t *testing.T) {
	log, hook := test.NewNullLogger()
	shell := &fakeShell{
		outputs:  map[string]string{"sh ver": "v", "sh startup": "s"},
		failures: map[string]error{"sh run": ssh.ErrTimeout},
	}
	svc := NewCollectService(testConfig(), log,
		WithShellFactory(func(model.DeviceTarget) RemoteShell { return shell }),
		WithStore(newMemStore()),
		WithParser(RawParser{}),
		WithOutput(&bytes.Buffer{}),
	)
	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitConnection, ExitCode(err))
	assert.Equal(t, []string{"sh ver", "sh startup", "sh run"}, shell.executed)

	assert.Equal(t, 1, countMessage(hook, "Collection failed"))
	assert.Equal(t, 1, countMessage(hook, "Program shutdown"))
	assert.Equal(t, "Program shutdown", hook.LastEntry().Message)
}

func TestCollectRecoversPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	shell := &fakeShell{outputs: map[string]string{"sh ver": "v"}, panicOn: "sh startup"}
	svc := NewCollectService(testConfig(), log,
		WithShellFactory(func(model.DeviceTarget) RemoteShell { return shell }),
		WithStore(newMemStore()),
		WithParser(RawParser{}),
		WithOutput(&bytes.Buffer{}),
	)

	var err error
	require.NotPanics(t, func() { err = svc.Run(context.Background()) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device returned garbage")
	assert.Equal(t, ExitUnexpected, ExitCode(err))
	assert.Equal(t, 1, shell.closed)
	assert.Equal(t, 1, countMessage(hook, "Program shutdown"))
}

func TestCollectNoCommands(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := testConfig()
	cfg.Collector.Commands = nil
	svc := NewCollectService(cfg, log, WithStore(newMemStore()), WithOutput(&bytes.Buffer{}))

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 1, countMessage(hook, "No commands configured; nothing to collect"))
	assert.Equal(t, 1, countMessage(hook, "Program shutdown"))
}

func TestCollectUnsupportedStorageBackend(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := testConfig()
	cfg.Storage.Backend = "ftp"
	svc := NewCollectService(cfg, log, WithOutput(&bytes.Buffer{}))

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitStorage, ExitCode(err))
}

func startSwitch(t *testing.T) *simulate.Server {
	t.Helper()
	cfg, err := simulate.LoadConfig(filepath.Join("..", "..", "simulate", "simulate.yaml"))
	require.NoError(t, err)
	cfg.Listen = "127.0.0.1:0"
	cfg.HostKeyPath = ""
	srv, err := simulate.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestCollectEndToEnd(t *testing.T) {
	srv := startSwitch(t)
	host, port := srv.HostPort()
	dir := t.TempDir()

	cfg := testConfig()
	cfg.Device.Host = host
	cfg.Device.Port = port
	cfg.Templates.Dir = filepath.Join("..", "..", "templates")
	cfg.Storage = config.StorageConfig{
		Backend: "local",
		Local:   config.LocalStorageConfig{BaseDir: filepath.Join(dir, "files"), MkdirIfMissing: true},
	}
	cfg.SSH = config.SSHConfig{
		ConnectTimeout:   3 * time.Second,
		CommandTimeout:   3 * time.Second,
		DisablePagingCmd: "terminal length 0",
	}
	cfg.Journal = config.JournalConfig{Enabled: true, Path: filepath.Join(dir, "data", "journal.db")}

	log, hook := test.NewNullLogger()
	var out bytes.Buffer
	svc := NewCollectService(cfg, log, WithOutput(&out))
	require.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, messages(hook, logrus.ErrorLevel))

	read := func(command string) string {
		data, err := os.ReadFile(filepath.Join(dir, "files", ArtifactKey(host, command)))
		require.NoError(t, err)
		return string(data)
	}

	version := strings.Split(read("sh ver"), "\n")
	require.Len(t, version, 2)
	assert.Equal(t, []string{"VERSION", "HOSTNAME", "UPTIME", "HARDWARE", "SERIAL", "CONFIG_REGISTER"}, strings.Fields(version[0]))
	assert.True(t, strings.HasPrefix(version[1], "15.2(2)E6  Switch"))
	assert.Contains(t, version[1], "FOC1234X5YZ")

	brief := strings.Split(read("sh ip int br"), "\n")
	require.Len(t, brief, 4)
	assert.Equal(t, []string{"INTERFACE", "IP_ADDRESS", "STATUS", "PROTO"}, strings.Fields(brief[0]))
	assert.Equal(t, []string{"Vlan1", "10.0.0.1", "up", "up"}, strings.Fields(brief[1]))
	assert.Contains(t, brief[3], "administratively down")

	acl := strings.Split(read("sh access-lists"), "\n")
	require.Len(t, acl, 4)
	assert.Equal(t, []string{"Standard", "MGMT", "10", "permit"}, strings.Fields(acl[1])[:4])
	assert.True(t, strings.HasPrefix(acl[3], "Extended  WEB"))

	running := read("sh run")
	assert.Contains(t, running, "!\nversion 15.2\nhostname Switch\n!")
	assert.Contains(t, read("sh startup"), "Using 1234 out of 65536 bytes")

	// 显示时过滤 ! 行
	assert.Contains(t, out.String(), Banner(ArtifactKey(host, "sh run")))
	assert.NotContains(t, out.String(), "\n!\n")
	assert.Contains(t, out.String(), "version 15.2\nhostname Switch\ninterface Vlan1\n")

	// 默认每条命令独立会话
	assert.Equal(t, 5, srv.Shells())

	db, err := database.Open(cfg.Journal, log)
	require.NoError(t, err)
	defer database.Close(db)
	var runs []model.Run
	require.NoError(t, db.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, 5, runs[0].Commands)
	var attempts int64
	require.NoError(t, db.Model(&model.CommandAttempt{}).Where("run_id = ? AND status = ?", runs[0].ID, "success").Count(&attempts).Error)
	assert.Equal(t, int64(5), attempts)
}
