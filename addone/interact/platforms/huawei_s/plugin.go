package huawei_s

import "github.com/sshcollectorpro/switchinfo/addone/interact"

// Plugin 为 huawei_s 平台交互插件（S 系列交换机）
type Plugin struct{}

func (p *Plugin) Name() string { return "huawei_s" }

func (p *Plugin) Profile() interact.Profile {
	// 华为平台用户视图即可执行 display 命令，无需特权模式
	return interact.Profile{
		PromptSuffixes:   []string{">", "]"},
		DisablePagingCmd: "screen-length 0 temporary",
	}
}

func init() {
	interact.Register("huawei_s", &Plugin{})
	interact.Register("huawei", &Plugin{})
}
