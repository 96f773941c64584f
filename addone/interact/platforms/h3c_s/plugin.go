package h3c_s

import "github.com/sshcollectorpro/switchinfo/addone/interact"

// Plugin 为 h3c_s 平台交互插件（H3C 交换机）
type Plugin struct{}

func (p *Plugin) Name() string { return "h3c_s" }

func (p *Plugin) Profile() interact.Profile {
	return interact.Profile{
		PromptSuffixes:   []string{">", "]"},
		DisablePagingCmd: "screen-length disable",
	}
}

func init() {
	interact.Register("h3c_s", &Plugin{})
	interact.Register("hp_comware", &Plugin{})
}
