package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sshcollectorpro/switchinfo/internal/model"
)

func TestFormatText(t *testing.T) {
	raw := "Cisco IOS Software\n  uptime is 1 week  \n"
	assert.Equal(t, raw, Format(model.TextResult(raw)))
	assert.Equal(t, Format(model.TextResult(raw)), Format(model.TextResult(Format(model.TextResult(raw)))))
	assert.Equal(t, "", Format(model.TextResult("")))
}

func TestFormatSingleRecord(t *testing.T) {
	got := Format(model.RecordsResult([]string{"version"}, [][]string{{"15.2"}}))
	assert.Equal(t, "version\n15.2", got)
}

func TestFormatAlignedTable(t *testing.T) {
	res := model.RecordsResult(
		[]string{"intf", "ip"},
		[][]string{
			{"Gi0/1", "10.0.0.1"},
			{"Vlan100", "unassigned"},
		},
	)
	want := "intf     ip\n" +
		"Gi0/1    10.0.0.1\n" +
		"Vlan100  unassigned"
	assert.Equal(t, want, Format(res))
}

func TestFormatKeepsInputOrderAndLineCount(t *testing.T) {
	rows := [][]string{{"z", "1"}, {"a", "2"}, {"m", "3"}}
	got := Format(model.RecordsResult([]string{"name", "n"}, rows))
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, len(rows)+1)
	assert.Equal(t, []string{"z", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"a", "2"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"m", "3"}, strings.Fields(lines[3]))
	assert.False(t, strings.HasSuffix(got, "\n"))
	for _, l := range lines {
		assert.Equal(t, strings.TrimRight(l, " "), l, "行尾不应有空格")
	}
}

func TestFormatEmptyRecords(t *testing.T) {
	assert.Equal(t, "a  b", Format(model.RecordsResult([]string{"a", "b"}, nil)))
	assert.Equal(t, "", Format(model.RecordsResult(nil, nil)))
}

func TestFormatShortRowAndEmbeddedNewline(t *testing.T) {
	res := model.RecordsResult(
		[]string{"name", "desc"},
		[][]string{{"x"}, {"y", "two\nlines"}},
	)
	assert.Equal(t, "name  desc\nx\ny     two lines", Format(res))
}
