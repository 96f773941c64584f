package service

import (
	"errors"
	"fmt"
	"strings"
)

// 进程退出码
const (
	ExitOK         = 0
	ExitConfig     = 1
	ExitConnection = 2
	ExitStorage    = 3
	ExitUnexpected = 4
)

// ConfigurationError 必填配置缺失或配置无效，在任何网络操作之前发现
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError 会话无法建立、认证失败、提权失败或等待设备超时
type ConnectionError struct {
	Host    string
	Command string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("connection to %s failed while running %q: %v", e.Host, e.Command, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StorageError 结果写入或读取失败
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExitCode 按错误分类映射退出码；聚合错误取第一个可识别的分类
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return ExitConnection
	}
	var stErr *StorageError
	if errors.As(err, &stErr) {
		return ExitStorage
	}
	return ExitUnexpected
}
