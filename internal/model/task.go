package model

import (
	"time"
)

// Run 一次采集运行
type Run struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Host       string    `json:"host" gorm:"type:varchar(128);not null;index"`
	DeviceType string    `json:"device_type" gorm:"type:varchar(64)"`
	Commands   int       `json:"commands" gorm:"not null;default:0"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null;default:'running'"`
	ErrorMsg   string    `json:"error_msg" gorm:"type:text"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (Run) TableName() string {
	return "runs"
}

// RunStatus 运行状态枚举
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// CommandAttempt 单条命令的执行记录
type CommandAttempt struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	RunID       string    `json:"run_id" gorm:"type:varchar(64);not null;index"`
	Seq         int       `json:"seq" gorm:"not null"`
	Command     string    `json:"command" gorm:"type:text;not null"`
	ResultKind  string    `json:"result_kind" gorm:"type:varchar(16)"`
	ArtifactKey string    `json:"artifact_key" gorm:"type:text"`
	Bytes       int64     `json:"bytes"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null"`
	ErrorMsg    string    `json:"error_msg" gorm:"type:text"`
	Duration    int64     `json:"duration"` // 毫秒
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (CommandAttempt) TableName() string {
	return "command_attempts"
}
