package h3c_sr

import (
	"time"

	"github.com/sshcollectorpro/switchinfo/addone/interact"
)

// Plugin 为 h3c_sr 平台交互插件（SR 系列路由器）
type Plugin struct{}

func (p *Plugin) Name() string { return "h3c_sr" }

func (p *Plugin) Profile() interact.Profile {
	return interact.Profile{
		PromptSuffixes:   []string{">", "]"},
		DisablePagingCmd: "screen-length disable",
		CommandTimeout:   45 * time.Second,
	}
}

func init() { interact.Register("h3c_sr", &Plugin{}) }
