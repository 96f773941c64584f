package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/database"
	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// ShellFactory 为目标设备创建 RemoteShell
type ShellFactory func(target model.DeviceTarget) RemoteShell

// CollectService 一次完整的采集运行：启动标记 → 校验 → 采集 → 结束标记
type CollectService struct {
	cfg      *config.Config
	log      *logrus.Logger
	out      io.Writer
	newShell ShellFactory
	store    ResultStore
	parser   Parser
}

// CollectOption 可选依赖注入
type CollectOption func(*CollectService)

// WithShellFactory 替换 SSH 会话实现
func WithShellFactory(f ShellFactory) CollectOption {
	return func(s *CollectService) { s.newShell = f }
}

// WithStore 替换结果存储
func WithStore(store ResultStore) CollectOption {
	return func(s *CollectService) { s.store = store }
}

// WithParser 替换解析器
func WithParser(p Parser) CollectOption {
	return func(s *CollectService) { s.parser = p }
}

// WithOutput 替换显示输出
func WithOutput(w io.Writer) CollectOption {
	return func(s *CollectService) { s.out = w }
}

// NewCollectService 创建采集服务
func NewCollectService(cfg *config.Config, log *logrus.Logger, opts ...CollectOption) *CollectService {
	s := &CollectService{cfg: cfg, log: log, out: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	if s.newShell == nil {
		s.newShell = func(target model.DeviceTarget) RemoteShell {
			return NewSSHShell(target, cfg.SSH, cfg.Collector.ReuseSession, log)
		}
	}
	return s
}

// Run 执行采集；结束标记无论成功、失败或 panic 都只记录一次
func (s *CollectService) Run(ctx context.Context) (err error) {
	s.log.Info("Program started")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
			s.log.WithField("panic", r).Error("Collection aborted")
		}
		s.log.Info("Program shutdown")
	}()

	target := s.cfg.Device
	if !Validate(s.log, target) {
		s.log.Info("Program stopped")
		return &ConfigurationError{Missing: MissingFields(target)}
	}

	specs := s.cfg.Collector.Commands
	if len(specs) == 0 {
		s.log.Warn("No commands configured; nothing to collect")
		return nil
	}

	store := s.store
	if store == nil {
		store, err = NewResultStore(s.cfg.Storage, s.log)
		if err != nil {
			s.log.WithError(err).Error("Result store initialization failed")
			return &StorageError{Op: "init", Key: s.cfg.Storage.Backend, Err: err}
		}
	}
	parser := s.parser
	if parser == nil {
		parser = NewParser(s.cfg.Templates.Dir, s.log)
	}

	journal, closeJournal := s.openJournal()
	defer closeJournal()

	p := &Pipeline{
		Shell:          s.newShell(target),
		Parser:         parser,
		Store:          store,
		Journal:        journal,
		Out:            s.out,
		Log:            s.log,
		FailurePolicy:  s.cfg.Collector.FailurePolicy,
		DebugEchoLines: s.cfg.Collector.DebugEchoLines,
	}
	s.log.WithFields(logrus.Fields{
		"host":     target.Host,
		"commands": len(specs),
		"policy":   p.FailurePolicy,
	}).Info("Collection started")

	if err := p.Run(ctx, target, specs); err != nil {
		s.log.WithError(err).Error("Collection failed")
		return err
	}
	s.log.WithField("host", target.Host).Info("Collection completed")
	return nil
}

// openJournal 运行记录为辅助功能，打开失败时记录警告并继续
func (s *CollectService) openJournal() (Journal, func()) {
	if !s.cfg.Journal.Enabled {
		return NopJournal{}, func() {}
	}
	db, err := database.Open(s.cfg.Journal, s.log)
	if err != nil {
		s.log.WithError(err).Warn("Run journal unavailable")
		return NopJournal{}, func() {}
	}
	return NewGormJournal(db), func() {
		if err := database.Close(db); err != nil {
			s.log.WithError(err).Warn("Failed to close run journal")
		}
	}
}
