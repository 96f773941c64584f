package simulate

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 模拟设备配置（simulate.yaml）
type Config struct {
	Listen       string          `mapstructure:"listen"`
	Hostname     string          `mapstructure:"hostname"`
	Username     string          `mapstructure:"username"`
	Password     string          `mapstructure:"password"`
	EnableSecret string          `mapstructure:"enable_secret"`
	Banner       string          `mapstructure:"banner"`
	IdleTimeout  time.Duration   `mapstructure:"idle_timeout"`
	HostKeyPath  string          `mapstructure:"host_key_path"`
	Commands     []CommandOutput `mapstructure:"commands"`
}

// CommandOutput 一条模拟命令；输入按 Cisco 缩写规则匹配（sh ver → show version）
type CommandOutput struct {
	Command    string        `mapstructure:"command"`
	Output     string        `mapstructure:"output"`
	Privileged bool          `mapstructure:"privileged"`
	Delay      time.Duration `mapstructure:"delay"`
}

// DefaultConfig 默认模拟设备
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:0",
		Hostname:     "Switch",
		Username:     "admin",
		Password:     "admin",
		EnableSecret: "enable",
	}
}

// LoadConfig 读取模拟设备配置
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	def := DefaultConfig()
	v.SetDefault("listen", "127.0.0.1:2222")
	v.SetDefault("hostname", def.Hostname)
	v.SetDefault("username", def.Username)
	v.SetDefault("password", def.Password)
	v.SetDefault("enable_secret", def.EnableSecret)
	v.SetDefault("idle_timeout", 5*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	for i, c := range cfg.Commands {
		if strings.TrimSpace(c.Command) == "" {
			return nil, fmt.Errorf("simulate config: command %d is empty", i+1)
		}
	}
	return &cfg, nil
}

// lookup 按词前缀匹配命令：输入的每个词都必须是对应词的前缀，且词数相同
func (c *Config) lookup(input string) (CommandOutput, bool) {
	in := strings.Fields(strings.ToLower(input))
	if len(in) == 0 {
		return CommandOutput{}, false
	}
	for _, cmd := range c.Commands {
		words := strings.Fields(strings.ToLower(cmd.Command))
		if len(words) != len(in) {
			continue
		}
		ok := true
		for i := range in {
			if !strings.HasPrefix(words[i], in[i]) {
				ok = false
				break
			}
		}
		if ok {
			return cmd, true
		}
	}
	return CommandOutput{}, false
}
