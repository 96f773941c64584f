package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestEnsureUTF8Bytes(t *testing.T) {
	assert.Equal(t, "", EnsureUTF8Bytes(nil))
	assert.Equal(t, "show version", EnsureUTF8Bytes([]byte("show version")))

	gbk, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("接口状态"))
	assert.NoError(t, err)
	assert.Equal(t, "接口状态", EnsureUTF8Bytes(gbk), "GB18030 输出应被转换为 UTF-8")
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "Router#", StripANSI("\x1b[0KRouter#"))
	assert.Equal(t, "a\tb\nc", StripANSI("a\tb\x07\nc\x1b[31m"))
	assert.Equal(t, "", StripANSI(""))
}

func TestCleanTerminalOutput(t *testing.T) {
	in := []byte("line1\r\nline2\r\r\n\x1b[1mRouter#\x1b[0m")
	assert.Equal(t, "line1\nline2\nRouter#", CleanTerminalOutput(in))
}
