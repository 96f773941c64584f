package interact

import "sync"

// 注册中心，按平台名称（device_type）获取交互配置
var (
	registryMu sync.RWMutex
	registry   = map[string]Plugin{
		"default": &DefaultPlugin{},
	}
)

// Register 注册一个平台插件
func Register(name string, plugin Plugin) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = plugin
}

// Get 获取指定平台的插件，不存在则返回 default
func Get(name string) Plugin {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if p, ok := registry[name]; ok {
		return p
	}
	return registry["default"]
}

// Names 已注册的平台
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
