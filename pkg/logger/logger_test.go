package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileOutputMirrorsErrorsToConsole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "switchinfo.log")
	var console bytes.Buffer

	log, closer, err := newWithConsole(Config{
		Level:      "info",
		Output:     "file",
		FilePath:   path,
		MaxSize:    1,
		MaxBackups: 2,
	}, &console)
	require.NoError(t, err)
	defer closer()

	log.Info("program started")
	log.Error("connection refused")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "program started")
	assert.Contains(t, string(data), "connection refused")

	// 控制台只出现 error 级别
	assert.NotContains(t, console.String(), "program started")
	assert.Contains(t, console.String(), "connection refused")
}

func TestNewConsoleOutputHasNoHook(t *testing.T) {
	var console bytes.Buffer
	log, _, err := newWithConsole(Config{Level: "debug", Output: "console"}, &console)
	require.NoError(t, err)

	log.Error("once")
	assert.Equal(t, 1, bytes.Count(console.Bytes(), []byte("once")))
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewFileOutputRequiresPath(t *testing.T) {
	_, _, err := New(Config{Output: "file"})
	assert.Error(t, err)
}

func TestConsoleHookLevels(t *testing.T) {
	h := &ConsoleHook{MinLevel: logrus.ErrorLevel}
	assert.ElementsMatch(t, []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}, h.Levels())
}

func TestParseOutputLines(t *testing.T) {
	lines := ParseOutputLines("a\r\nb\nc\nd\n", 2)
	assert.Equal(t, []string{"a", "b"}, lines.HeadLines)
	assert.Equal(t, []string{"c", "d"}, lines.TailLines)
	assert.Equal(t, "head-lines: [a ⟩ b], tail-lines: [c ⟩ d]", FormatOutputLines(lines))

	short := ParseOutputLines("only\n", 5)
	assert.Equal(t, short.HeadLines, short.TailLines)
	assert.Equal(t, "head-lines: [only]", FormatOutputLines(short))

	assert.Empty(t, ParseOutputLines("", 5).HeadLines)
}
