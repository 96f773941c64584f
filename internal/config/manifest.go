package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// CommandManifest YAML 命令清单
//
//	name: core-switch-audit
//	commands:
//	  - command: show version
//	    parse: true
//	  - show running-config
type CommandManifest struct {
	Name     string         `yaml:"name"`
	Commands []manifestItem `yaml:"commands"`
}

// manifestItem 支持两种写法：纯字符串（默认解析）或 {command, parse}
type manifestItem struct {
	model.CommandSpec
}

func (m *manifestItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Command = node.Value
		m.Parse = true
		return nil
	}
	var raw struct {
		Command string `yaml:"command"`
		Parse   *bool  `yaml:"parse"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	m.Command = raw.Command
	m.Parse = true
	if raw.Parse != nil {
		m.Parse = *raw.Parse
	}
	return nil
}

// LoadCommandManifest 读取命令清单文件
func LoadCommandManifest(path string) ([]model.CommandSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file %s: %w", path, err)
	}
	var mf CommandManifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse commands file %s: %w", path, err)
	}
	out := make([]model.CommandSpec, 0, len(mf.Commands))
	for i, item := range mf.Commands {
		cmd := strings.TrimSpace(item.Command)
		if cmd == "" {
			return nil, fmt.Errorf("commands file %s: entry %d has empty command", path, i+1)
		}
		out = append(out, model.CommandSpec{Command: cmd, Parse: item.Parse})
	}
	return out, nil
}
