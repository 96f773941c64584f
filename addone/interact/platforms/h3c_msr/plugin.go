package h3c_msr

import (
	"time"

	"github.com/sshcollectorpro/switchinfo/addone/interact"
)

// Plugin 为 h3c_msr 平台交互插件（MSR 系列路由器）
type Plugin struct{}

func (p *Plugin) Name() string { return "h3c_msr" }

func (p *Plugin) Profile() interact.Profile {
	return interact.Profile{
		PromptSuffixes:   []string{">", "]"},
		DisablePagingCmd: "screen-length disable",
		CommandTimeout:   45 * time.Second,
	}
}

func init() { interact.Register("h3c_msr", &Plugin{}) }
