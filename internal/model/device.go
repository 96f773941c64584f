package model

// DeviceTarget 设备连接信息（打开会话所需的身份与凭据）
type DeviceTarget struct {
	DeviceType string `json:"device_type" mapstructure:"device_type"`
	Host       string `json:"host" mapstructure:"host"`
	Port       int    `json:"port,omitempty" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
	Secret     string `json:"secret" mapstructure:"secret"`
}

// RequiredField 必填字段名与取值
type RequiredField struct {
	Name  string
	Value string
}

// RequiredFields 按固定顺序返回必填字段，名称与配置键一致
func (d DeviceTarget) RequiredFields() []RequiredField {
	return []RequiredField{
		{Name: "device_type", Value: d.DeviceType},
		{Name: "host", Value: d.Host},
		{Name: "username", Value: d.Username},
		{Name: "password", Value: d.Password},
		{Name: "secret", Value: d.Secret},
	}
}

// EffectivePort 端口未设置或越界时使用 22
func (d DeviceTarget) EffectivePort() int {
	if d.Port < 1 || d.Port > 65535 {
		return 22
	}
	return d.Port
}

// CommandSpec 单条待执行命令
type CommandSpec struct {
	Command string `json:"command" yaml:"command" mapstructure:"command"`
	// Parse 是否尝试按模板解析为结构化记录
	Parse bool `json:"parse" yaml:"parse" mapstructure:"parse"`
}
