package util

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// 设备输出常见的非 UTF-8 编码，按尝试顺序排列
var legacyEncodings = []encoding.Encoding{
	simplifiedchinese.GB18030,
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// EnsureUTF8Bytes 将设备输出转换为 UTF-8 字符串
// 已是合法 UTF-8 时原样返回；所有候选编码都失败时按原始字节返回
func EnsureUTF8Bytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	for _, enc := range legacyEncodings {
		if s, ok := tryDecode(enc, b); ok {
			return s
		}
	}
	return string(b)
}

func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	reader := transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}
	if utf8.Valid(decoded) {
		return string(decoded), true
	}
	return "", false
}

// StripANSI 移除 ANSI 转义序列（CSI 以字母结尾）以及除 \t \n 外的控制字符
func StripANSI(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	skip := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if skip {
			if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') {
				skip = false
			}
			continue
		}
		if ch == 0x1b {
			skip = true
			continue
		}
		if ch < 0x20 && ch != '\t' && ch != '\n' {
			continue
		}
		if ch == 0x7f {
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// NormalizeNewlines CRLF 统一为 LF，孤立的 CR 直接去除
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "")
}

// CleanTerminalOutput 设备终端输出的标准清洗：编码转换 → 换行统一 → 去除控制序列
func CleanTerminalOutput(b []byte) string {
	return StripANSI(NormalizeNewlines(EnsureUTF8Bytes(b)))
}
