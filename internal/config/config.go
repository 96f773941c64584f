package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/logger"
)

// EnvPrefix 环境变量前缀，例如 SWITCHINFO_LOG_LEVEL
const EnvPrefix = "SWITCHINFO"

// 失败策略
const (
	FailFast = "fail_fast"
	Continue = "continue"
)

// Config 应用配置结构
type Config struct {
	Device    model.DeviceTarget `mapstructure:"device"`
	Collector CollectorConfig    `mapstructure:"collector"`
	Templates TemplatesConfig    `mapstructure:"templates"`
	Storage   StorageConfig      `mapstructure:"storage"`
	SSH       SSHConfig          `mapstructure:"ssh"`
	Log       LogConfig          `mapstructure:"log"`
	Journal   JournalConfig      `mapstructure:"journal"`
}

// CollectorConfig 采集流程配置
type CollectorConfig struct {
	Commands []model.CommandSpec `mapstructure:"commands"`
	// CommandsFile YAML 命令清单，设置后覆盖 Commands
	CommandsFile string `mapstructure:"commands_file"`
	// FailurePolicy fail_fast | continue
	FailurePolicy string `mapstructure:"failure_policy"`
	// ReuseSession 整个命令序列复用同一 SSH 会话
	ReuseSession bool `mapstructure:"reuse_session"`
	// DebugEchoLines debug 级别记录命令回显的 head/tail 行数
	DebugEchoLines int `mapstructure:"debug_echo_lines"`
}

// TemplatesConfig TextFSM 模板目录（ntc-templates 布局：index + *.textfsm）
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// StorageConfig 采集结果存储配置
type StorageConfig struct {
	// Backend local | minio
	Backend string             `mapstructure:"backend"`
	Local   LocalStorageConfig `mapstructure:"local"`
	Minio   MinioConfig        `mapstructure:"minio"`
}

// LocalStorageConfig 本地文件存储
type LocalStorageConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// MinioConfig 对象存储配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Secure    bool   `mapstructure:"secure"`
}

// SSHConfig SSH配置
type SSHConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// CommandTimeout 单条命令超时，0 使用平台默认（未知平台 30s）
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	// DisablePagingCmd 关闭分页命令，为空使用平台默认
	DisablePagingCmd string `mapstructure:"disable_paging_cmd"`
	// PromptSuffixes 提示符后缀，为空使用平台默认
	PromptSuffixes []string `mapstructure:"prompt_suffixes"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level        string `mapstructure:"level"`
	Format       string `mapstructure:"format"`
	Output       string `mapstructure:"output"`
	FilePath     string `mapstructure:"file_path"`
	MaxSize      int    `mapstructure:"max_size"`
	MaxBackups   int    `mapstructure:"max_backups"`
	MaxAge       int    `mapstructure:"max_age"`
	Compress     bool   `mapstructure:"compress"`
	ConsoleLevel string `mapstructure:"console_level"`
}

// JournalConfig 运行记录（SQLite）配置
type JournalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DefaultCommands 默认命令清单
func DefaultCommands() []model.CommandSpec {
	return []model.CommandSpec{
		{Command: "sh ver", Parse: true},
		{Command: "sh startup", Parse: true},
		{Command: "sh run", Parse: true},
		{Command: "sh access-lists", Parse: true},
		{Command: "sh ip int br", Parse: true},
	}
}

// Load 加载配置：.env → 配置文件 → 环境变量
// configPath 为空时按默认路径查找，找不到配置文件不视为错误
func Load(configPath string) (*Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile 同 Load，可指定 .env 文件路径（为空则跳过）
func LoadWithEnvFile(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		// 已存在的环境变量优先，.env 缺失时忽略
		if err := gotenv.Load(envFile); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if f := strings.TrimSpace(cfg.Collector.CommandsFile); f != "" {
		cmds, err := LoadCommandManifest(f)
		if err != nil {
			return nil, err
		}
		cfg.Collector.Commands = cmds
	}

	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindLegacyEnv 兼容原有环境变量名（DEVICE_TYPE/HOST/... 与 NET_TEXTFSM）
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"device.device_type": {EnvPrefix + "_DEVICE_DEVICE_TYPE", "DEVICE_TYPE"},
		"device.host":        {EnvPrefix + "_DEVICE_HOST", "HOST"},
		"device.username":    {EnvPrefix + "_DEVICE_USERNAME", "USERNAME"},
		"device.password":    {EnvPrefix + "_DEVICE_PASSWORD", "PASSWORD"},
		"device.secret":      {EnvPrefix + "_DEVICE_SECRET", "SECRET"},
		"device.port":        {EnvPrefix + "_DEVICE_PORT"},
		"templates.dir":      {EnvPrefix + "_TEMPLATES_DIR", "NET_TEXTFSM"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.port", 22)

	commands := make([]map[string]interface{}, 0)
	for _, c := range DefaultCommands() {
		commands = append(commands, map[string]interface{}{"command": c.Command, "parse": c.Parse})
	}
	v.SetDefault("collector.commands", commands)
	v.SetDefault("collector.failure_policy", FailFast)
	v.SetDefault("collector.reuse_session", false)
	v.SetDefault("collector.debug_echo_lines", 5)

	v.SetDefault("templates.dir", "./templates")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_dir", "./files")
	v.SetDefault("storage.local.mkdir_if_missing", true)
	v.SetDefault("storage.minio.port", 9000)
	v.SetDefault("storage.minio.bucket", "switchinfo")
	v.SetDefault("storage.minio.prefix", "artifacts")

	v.SetDefault("ssh.connect_timeout", 10*time.Second)
	// 以下为空时使用 device_type 对应的平台默认值
	v.SetDefault("ssh.command_timeout", 0)
	v.SetDefault("ssh.keep_alive_interval", 0)
	v.SetDefault("ssh.disable_paging_cmd", "")
	v.SetDefault("ssh.prompt_suffixes", []string{})

	// 日志默认：滚动文件 1MB × 2 备份，error 及以上同步到控制台
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "file")
	v.SetDefault("log.file_path", "./logs/switchinfo.log")
	v.SetDefault("log.max_size", 1)
	v.SetDefault("log.max_backups", 2)
	v.SetDefault("log.max_age", 0)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.console_level", "error")

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "./data/switchinfo.db")
	v.SetDefault("journal.conn_max_lifetime", time.Hour)
}

func normalize(cfg *Config) error {
	cfg.Device.DeviceType = strings.TrimSpace(cfg.Device.DeviceType)
	cfg.Device.Host = strings.TrimSpace(cfg.Device.Host)
	cfg.Device.Username = strings.TrimSpace(cfg.Device.Username)

	p, err := ParseFailurePolicy(cfg.Collector.FailurePolicy)
	if err != nil {
		return err
	}
	cfg.Collector.FailurePolicy = p

	cmds := make([]model.CommandSpec, 0, len(cfg.Collector.Commands))
	for _, c := range cfg.Collector.Commands {
		c.Command = strings.TrimSpace(c.Command)
		if c.Command == "" {
			continue
		}
		cmds = append(cmds, c)
	}
	cfg.Collector.Commands = cmds

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	return nil
}

// ParseFailurePolicy 解析失败策略，空值视为 fail_fast
func ParseFailurePolicy(s string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case "", FailFast:
		return FailFast, nil
	case Continue:
		return Continue, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// LoggerConfig 转换为 pkg/logger 配置
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:        c.Log.Level,
		Format:       c.Log.Format,
		Output:       c.Log.Output,
		FilePath:     c.Log.FilePath,
		MaxSize:      c.Log.MaxSize,
		MaxBackups:   c.Log.MaxBackups,
		MaxAge:       c.Log.MaxAge,
		Compress:     c.Log.Compress,
		ConsoleLevel: c.Log.ConsoleLevel,
	}
}

// Endpoint 获取 MinIO 地址 host:port
func (m MinioConfig) Endpoint() string {
	return net.JoinHostPort(strings.TrimSpace(m.Host), strconv.Itoa(m.Port))
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
