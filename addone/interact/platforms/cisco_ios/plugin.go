package cisco_ios

import (
	"time"

	"github.com/sshcollectorpro/switchinfo/addone/interact"
)

// Plugin 为 cisco_ios 平台交互插件
type Plugin struct{}

func (p *Plugin) Name() string { return "cisco_ios" }

func (p *Plugin) Profile() interact.Profile {
	// show run 在大配置设备上较慢
	return interact.Profile{
		PromptSuffixes:   []string{">", "#"},
		DisablePagingCmd: "terminal length 0",
		EnableRequired:   true,
		CommandTimeout:   60 * time.Second,
	}
}

func init() {
	interact.Register("cisco_ios", &Plugin{})
	interact.Register("cisco_xe", &Plugin{})
}
