package huawei_ce

import (
	"time"

	"github.com/sshcollectorpro/switchinfo/addone/interact"
)

// Plugin 为 huawei_ce 平台交互插件（CE 数据中心交换机）
type Plugin struct{}

func (p *Plugin) Name() string { return "huawei_ce" }

func (p *Plugin) Profile() interact.Profile {
	return interact.Profile{
		PromptSuffixes:   []string{">", "]"},
		DisablePagingCmd: "screen-length 0 temporary",
		CommandTimeout:   45 * time.Second,
	}
}

func init() { interact.Register("huawei_ce", &Plugin{}) }
