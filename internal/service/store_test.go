package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/switchinfo/internal/config"
)

func TestArtifactKey(t *testing.T) {
	cases := []struct {
		host, command, want string
	}{
		{"10.0.0.1", "show version", "10.0.0.1_show version"},
		{"10.0.0.1", "sh ip int br", "10.0.0.1_sh ip int br"},
		{"sw1", "show run | include ip/route", "sw1_show run _ include ip_route"},
		{"fe80::1", "show clock", "fe80__1_show clock"},
		{"h", "a\\b\x00c", "h_a_b_c"},
		{"", "", "unknown"},
		{"..", "", "unknown"},
		{" ", "/", "unknown"},
		{"_a", "", "_a_"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ArtifactKey(c.host, c.command), "%q %q", c.host, c.command)
	}
	assert.Equal(t, ArtifactKey("10.0.0.1", "show version"), ArtifactKey("10.0.0.1", "show version"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "files")
	store := NewLocalStore(config.LocalStorageConfig{BaseDir: dir, MkdirIfMissing: true})
	ctx := context.Background()
	key := ArtifactKey("10.0.0.1", "show version")

	require.NoError(t, store.Write(ctx, key, "version\n15.1"))
	require.NoError(t, store.Write(ctx, key, "version\n15.2"))
	got, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "version\n15.2", got, "重复写入覆盖")
	assert.Equal(t, filepath.Join(dir, key), store.Location(key))

	data, err := os.ReadFile(filepath.Join(dir, "10.0.0.1_show version"))
	require.NoError(t, err)
	assert.Equal(t, "version\n15.2", string(data))
}

func TestLocalStoreMissingDirWithoutMkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	store := NewLocalStore(config.LocalStorageConfig{BaseDir: dir})

	err := store.Write(context.Background(), "k", "v")
	require.Error(t, err)
	var stErr *StorageError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "write", stErr.Op)
	assert.Contains(t, err.Error(), `"k"`)
	assert.Equal(t, ExitStorage, ExitCode(err))
}

func TestLocalStoreReadMissing(t *testing.T) {
	store := NewLocalStore(config.LocalStorageConfig{BaseDir: t.TempDir()})
	_, err := store.Read(context.Background(), "nothing")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	var stErr *StorageError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "read", stErr.Op)
}

func TestNewResultStore(t *testing.T) {
	log, _ := test.NewNullLogger()

	s, err := NewResultStore(config.StorageConfig{Backend: "local", Local: config.LocalStorageConfig{BaseDir: t.TempDir()}}, log)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = NewResultStore(config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{
		Host: "127.0.0.1", Port: 9000, Bucket: "switchinfo", Prefix: "/artifacts/",
	}}, log)
	require.NoError(t, err)
	assert.Equal(t, "minio://switchinfo/artifacts/10.0.0.1_sh ver", s.Location("10.0.0.1_sh ver"))

	_, err = NewResultStore(config.StorageConfig{Backend: "minio"}, log)
	assert.Error(t, err)

	_, err = NewResultStore(config.StorageConfig{Backend: "ftp"}, log)
	assert.Error(t, err)
}
