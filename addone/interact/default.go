package interact

import "time"

// Profile 平台的会话参数
type Profile struct {
	// PromptSuffixes 提示符后缀
	PromptSuffixes []string
	// DisablePagingCmd 关闭分页命令
	DisablePagingCmd string
	// EnableRequired 是否需要 enable 进入特权模式
	EnableRequired bool
	// CommandTimeout 单条命令默认超时，0 表示使用全局配置
	CommandTimeout time.Duration
}

// Plugin 平台交互插件
type Plugin interface {
	// Name 插件名称（如：default、cisco_ios、huawei_s）
	Name() string
	// Profile 返回平台的会话参数
	Profile() Profile
}

// DefaultPlugin 未知平台按 Cisco IOS 风格处理
type DefaultPlugin struct{}

func (p *DefaultPlugin) Name() string { return "default" }

func (p *DefaultPlugin) Profile() Profile {
	return Profile{
		PromptSuffixes:   []string{">", "#"},
		DisablePagingCmd: "terminal length 0",
		EnableRequired:   true,
	}
}

// Merge 配置项非空时覆盖平台默认值
func (p Profile) Merge(suffixes []string, pagingCmd string, timeout time.Duration) Profile {
	out := p
	if len(suffixes) > 0 {
		out.PromptSuffixes = append([]string(nil), suffixes...)
	}
	if pagingCmd != "" {
		out.DisablePagingCmd = pagingCmd
	}
	if timeout > 0 {
		out.CommandTimeout = timeout
	}
	return out
}
