package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
	// ConsoleLevel 文件输出时同步镜像到控制台的最低级别（默认 error）
	ConsoleLevel string `json:"console_level"`
}

const timestampFormat = "2006-01-02 15:04:05"

// New 按配置创建日志实例，返回的 closer 用于在进程退出时关闭滚动文件
func New(config Config) (*logrus.Logger, func() error, error) {
	return newWithConsole(config, os.Stdout)
}

func newWithConsole(config Config, console io.Writer) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	closer := func() error { return nil }

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(newFormatter(config.Format))

	output := strings.ToLower(strings.TrimSpace(config.Output))
	if output == "" {
		output = "file"
	}

	var writers []io.Writer
	if output == "console" || output == "both" {
		writers = append(writers, console)
	}

	if output == "file" || output == "both" {
		if strings.TrimSpace(config.FilePath) == "" {
			return nil, closer, fmt.Errorf("log file path is empty")
		}
		// 确保日志目录存在
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, closer, fmt.Errorf("failed to create log dir: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter.Close
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}

	// 仅写文件时，error 及以上级别同步输出到控制台
	if output == "file" {
		consoleLevel, err := logrus.ParseLevel(config.ConsoleLevel)
		if err != nil {
			consoleLevel = logrus.ErrorLevel
		}
		log.AddHook(&ConsoleHook{
			Writer:    console,
			Formatter: newFormatter(config.Format),
			MinLevel:  consoleLevel,
		})
	}

	return log, closer, nil
}

func newFormatter(format string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &logrus.JSONFormatter{
			TimestampFormat:   timestampFormat,
			DisableHTMLEscape: true,
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableColors:   true,
	}
}

// ConsoleHook 将不低于 MinLevel 的日志镜像写入 Writer
type ConsoleHook struct {
	Writer    io.Writer
	Formatter logrus.Formatter
	MinLevel  logrus.Level
}

// Levels logrus 级别数值越小越严重
func (h *ConsoleHook) Levels() []logrus.Level {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= h.MinLevel {
			levels = append(levels, l)
		}
	}
	return levels
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	b, err := h.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.Writer.Write(b)
	return err
}

// Discard 返回不输出任何内容的日志实例（测试与工具场景）
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
