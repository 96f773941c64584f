package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputLines 命令输出的头部和尾部行
type OutputLines struct {
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
}

// ParseOutputLines 提取命令输出的头部和尾部各 maxLines 行
func ParseOutputLines(output string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}

	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return OutputLines{}
	}
	lines := strings.Split(output, "\n")

	headCount := min(maxLines, len(lines))
	head := make([]string, headCount)
	copy(head, lines[:headCount])

	// 行数不超过 maxLines 时 tail 与 head 相同
	if len(lines) <= maxLines {
		tail := make([]string, len(head))
		copy(tail, head)
		return OutputLines{HeadLines: head, TailLines: tail}
	}
	tail := make([]string, maxLines)
	copy(tail, lines[len(lines)-maxLines:])
	return OutputLines{HeadLines: head, TailLines: tail}
}

// FormatOutputLines 格式化为单行日志文本
func FormatOutputLines(lines OutputLines) string {
	var parts []string
	if len(lines.HeadLines) > 0 {
		parts = append(parts, "head-lines: ["+strings.Join(lines.HeadLines, " ⟩ ")+"]")
	}
	if len(lines.TailLines) > 0 && !areSlicesEqual(lines.HeadLines, lines.TailLines) {
		parts = append(parts, "tail-lines: ["+strings.Join(lines.TailLines, " ⟩ ")+"]")
	}
	return strings.Join(parts, ", ")
}

func areSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DebugCommandOutput 在 debug 级别记录命令回显的 head/tail 行
func DebugCommandOutput(log *logrus.Logger, host, command, output string, maxLines int) {
	if log == nil || !log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	lines := ParseOutputLines(output, maxLines)
	if len(lines.HeadLines) == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"host":    host,
		"command": command,
	}).Debugf("Command echo: %s", FormatOutputLines(lines))
}
