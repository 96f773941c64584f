package service

import (
	"strings"
	"text/tabwriter"

	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// Format 将命令结果转换为可落盘、可显示的文本
// 文本结果原样返回；记录结果渲染为定宽表格：表头一行，每条记录一行，列间距两个空格
func Format(result model.CommandResult) string {
	if result.Kind != model.ResultRecords {
		return result.Text
	}
	recs := result.Records
	if len(recs.Fields) == 0 {
		return ""
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	writeRow(tw, recs.Fields)
	for _, row := range recs.Rows {
		cells := make([]string, len(recs.Fields))
		copy(cells, row)
		writeRow(tw, cells)
	}
	_ = tw.Flush()

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func writeRow(tw *tabwriter.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			_, _ = tw.Write([]byte{'\t'})
		}
		// 单元格内的制表符与换行会破坏对齐
		c = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(c)
		_, _ = tw.Write([]byte(c))
	}
	_, _ = tw.Write([]byte{'\n'})
}
