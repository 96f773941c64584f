package service

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	bannerWidth   = 50
	bannerFill    = "*"
	commentMarker = "!"
)

// Banner 名称居中、两侧用 * 填充到 50 列；名称过长时原样返回
func Banner(name string) string {
	n := utf8.RuneCountInString(name)
	if n >= bannerWidth {
		return name
	}
	pad := bannerWidth - n
	left := pad / 2
	return strings.Repeat(bannerFill, left) + name + strings.Repeat(bannerFill, pad-left)
}

// Display 打印横幅与内容；以 ! 开头的行（配置注释/分隔）不显示，行尾空白去除
func Display(w io.Writer, name, content string) error {
	if _, err := fmt.Fprintf(w, "\n%s\n\n", Banner(name)); err != nil {
		return err
	}
	content = strings.TrimSuffix(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if content == "" {
		return nil
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, commentMarker) {
			continue
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " \t\r")); err != nil {
			return err
		}
	}
	return nil
}
