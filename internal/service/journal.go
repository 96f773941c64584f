package service

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/switchinfo/internal/database"
	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// Journal 运行审计记录：一次运行 + 每条命令的执行结果
type Journal interface {
	StartRun(target model.DeviceTarget, commands int) (string, error)
	RecordAttempt(attempt *model.CommandAttempt) error
	FinishRun(runID string, runErr error) error
}

// NopJournal 未启用运行记录
type NopJournal struct{}

func (NopJournal) StartRun(model.DeviceTarget, int) (string, error) { return "", nil }
func (NopJournal) RecordAttempt(*model.CommandAttempt) error        { return nil }
func (NopJournal) FinishRun(string, error) error                   { return nil }

// GormJournal 基于 SQLite 的运行记录
type GormJournal struct {
	db     *gorm.DB
	starts map[string]time.Time
}

// NewGormJournal 创建运行记录
func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db, starts: map[string]time.Time{}}
}

func (j *GormJournal) StartRun(target model.DeviceTarget, commands int) (string, error) {
	now := time.Now()
	run := &model.Run{
		ID:         uuid.NewString(),
		Host:       target.Host,
		DeviceType: target.DeviceType,
		Commands:   commands,
		Status:     model.RunStatusRunning,
		StartTime:  now,
	}
	err := database.WithRetry(j.db, func(db *gorm.DB) error {
		return db.Create(run).Error
	}, 3, 0)
	if err != nil {
		return "", err
	}
	j.starts[run.ID] = now
	return run.ID, nil
}

func (j *GormJournal) RecordAttempt(attempt *model.CommandAttempt) error {
	if attempt.RunID == "" {
		return nil
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	return database.WithRetry(j.db, func(db *gorm.DB) error {
		return db.Create(attempt).Error
	}, 3, 0)
}

func (j *GormJournal) FinishRun(runID string, runErr error) error {
	if runID == "" {
		return nil
	}
	end := time.Now()
	updates := map[string]interface{}{
		"status":   model.RunStatusSuccess,
		"end_time": end,
	}
	if start, ok := j.starts[runID]; ok {
		updates["duration"] = end.Sub(start).Milliseconds()
		delete(j.starts, runID)
	}
	if runErr != nil {
		updates["status"] = model.RunStatusFailed
		updates["error_msg"] = runErr.Error()
	}
	return database.WithRetry(j.db, func(db *gorm.DB) error {
		return db.Model(&model.Run{}).Where("id = ?", runID).Updates(updates).Error
	}, 3, 0)
}
