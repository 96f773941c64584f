package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/switchinfo/internal/model"
)

const templatesDir = "../../templates"

const ipBriefOutput = "Interface              IP-Address      OK? Method Status                Protocol\n" +
	"Vlan1                  10.0.0.1        YES manual up                    up\n" +
	"GigabitEthernet0/2     unassigned      YES unset  administratively down down"

func TestNewParserFallsBackToRaw(t *testing.T) {
	log, hook := test.NewNullLogger()

	assert.IsType(t, RawParser{}, NewParser("", log))
	assert.IsType(t, RawParser{}, NewParser(filepath.Join(t.TempDir(), "missing"), log))
	assert.Len(t, hook.AllEntries(), 2)

	res, err := RawParser{}.Parse("cisco_ios", "sh ver", "raw")
	require.NoError(t, err)
	assert.Equal(t, model.TextResult("raw"), res)
}

func TestTemplateParserRecords(t *testing.T) {
	log, _ := test.NewNullLogger()
	p := NewParser(templatesDir, log)
	require.IsType(t, &TemplateParser{}, p)

	res, err := p.Parse("cisco_ios", "sh ip int br", ipBriefOutput)
	require.NoError(t, err)
	require.Equal(t, model.ResultRecords, res.Kind)
	assert.Equal(t, []string{"INTERFACE", "IP_ADDRESS", "STATUS", "PROTO"}, res.Records.Fields)
	assert.Equal(t, [][]string{
		{"Vlan1", "10.0.0.1", "up", "up"},
		{"GigabitEthernet0/2", "unassigned", "administratively down", "down"},
	}, res.Records.Rows)
	assert.Equal(t, 2, res.Records.Len())
}

func TestTemplateParserKeepsRawText(t *testing.T) {
	log, _ := test.NewNullLogger()
	p := NewParser(templatesDir, log)

	// 无匹配模板
	res, err := p.Parse("cisco_ios", "sh run", "hostname sw1")
	require.NoError(t, err)
	assert.Equal(t, model.TextResult("hostname sw1"), res)

	// 平台不匹配
	res, err = p.Parse("juniper_junos", "show version", "JUNOS 20.4")
	require.NoError(t, err)
	assert.Equal(t, model.TextResult("JUNOS 20.4"), res)

	// 模板匹配但没有记录
	res, err = p.Parse("cisco_ios", "sh ip int br", "% Invalid input detected at '^' marker.")
	require.NoError(t, err)
	assert.Equal(t, model.ResultText, res.Kind)
}

func TestTemplateParserBrokenTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index"),
		[]byte("Template, Hostname, Platform, Command\nbroken.textfsm, .*, cisco_ios, sh[[ow]] ver[[sion]]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.textfsm"),
		[]byte("Value VERSION (\\S+\n\nStart\n  ^${VERSION}\n"), 0o644))

	log, _ := test.NewNullLogger()
	p := NewParser(dir, log)
	res, err := p.Parse("cisco_ios", "sh ver", "Version 15.2")
	assert.Error(t, err)
	assert.Equal(t, model.TextResult("Version 15.2"), res)
}
