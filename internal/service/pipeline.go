package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/logger"
)

// 命令执行记录状态
const (
	attemptSuccess = "success"
	attemptFailed  = "failed"
)

// Pipeline 单台设备的顺序采集：执行 → 解析 → 格式化 → 写入 → 读回 → 显示
type Pipeline struct {
	Shell   RemoteShell
	Parser  Parser
	Store   ResultStore
	Journal Journal
	Out     io.Writer
	Log     *logrus.Logger
	// FailurePolicy fail_fast | continue
	FailurePolicy  string
	DebugEchoLines int
}

func (p *Pipeline) defaults() {
	if p.Parser == nil {
		p.Parser = RawParser{}
	}
	if p.Journal == nil {
		p.Journal = NopJournal{}
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.Log == nil {
		p.Log = logger.Discard()
	}
	if p.FailurePolicy != config.Continue {
		p.FailurePolicy = config.FailFast
	}
}

// Run 按顺序执行全部命令
// fail_fast 下遇到首个失败即停止并返回该错误；continue 下执行全部命令后返回聚合错误
func (p *Pipeline) Run(ctx context.Context, target model.DeviceTarget, specs []model.CommandSpec) error {
	p.defaults()
	if p.Shell == nil || p.Store == nil {
		return errors.New("pipeline requires a remote shell and a result store")
	}
	defer func() {
		if err := p.Shell.Close(); err != nil {
			p.Log.WithError(err).WithField("host", target.Host).Debug("Remote shell close failed")
		}
	}()

	runID, err := p.Journal.StartRun(target, len(specs))
	if err != nil {
		p.Log.WithError(err).Warn("Failed to record run start")
	}

	var errs []error
	for i, spec := range specs {
		if cerr := ctx.Err(); cerr != nil {
			errs = append(errs, fmt.Errorf("collection interrupted before %q: %w", spec.Command, cerr))
			break
		}
		if err := p.runCommand(ctx, runID, i+1, target, spec); err != nil {
			errs = append(errs, err)
			if p.FailurePolicy == config.FailFast {
				if skipped := len(specs) - i - 1; skipped > 0 {
					p.Log.WithFields(logrus.Fields{
						"host":    target.Host,
						"skipped": skipped,
					}).Warn("Remaining commands skipped after failure")
				}
				break
			}
		}
	}

	runErr := errors.Join(errs...)
	if err := p.Journal.FinishRun(runID, runErr); err != nil {
		p.Log.WithError(err).Warn("Failed to record run result")
	}
	return runErr
}

func (p *Pipeline) runCommand(ctx context.Context, runID string, seq int, target model.DeviceTarget, spec model.CommandSpec) error {
	start := time.Now()
	key := ArtifactKey(target.Host, spec.Command)
	entry := p.Log.WithFields(logrus.Fields{"host": target.Host, "command": spec.Command})
	attempt := &model.CommandAttempt{
		RunID:       runID,
		Seq:         seq,
		Command:     spec.Command,
		ArtifactKey: key,
		Status:      attemptFailed,
	}
	defer func() {
		attempt.Duration = time.Since(start).Milliseconds()
		if err := p.Journal.RecordAttempt(attempt); err != nil {
			entry.WithError(err).Warn("Failed to record command attempt")
		}
	}()

	raw, err := p.Shell.Execute(ctx, spec.Command)
	if err != nil {
		cerr := &ConnectionError{Host: target.Host, Command: spec.Command, Err: err}
		attempt.ErrorMsg = cerr.Error()
		entry.WithError(err).Error("Command execution failed")
		return cerr
	}
	entry.Info("Command sent to device")
	logger.DebugCommandOutput(p.Log, target.Host, spec.Command, raw, p.DebugEchoLines)

	result := model.TextResult(raw)
	if spec.Parse {
		parsed, perr := p.Parser.Parse(target.DeviceType, spec.Command, raw)
		if perr != nil {
			entry.WithError(perr).Warn("Template parsing failed; keeping raw output")
		}
		result = parsed
	}
	attempt.ResultKind = result.Kind.String()
	if result.Kind == model.ResultRecords {
		entry.WithField("records", result.Records.Len()).Info("Output parsed into records")
	}

	content := Format(result)
	if err := p.Store.Write(ctx, key, content); err != nil {
		serr := asStorageError("write", key, err)
		attempt.ErrorMsg = serr.Error()
		entry.WithError(err).WithField("key", key).Error("Artifact write failed")
		return serr
	}
	attempt.Bytes = int64(len(content))
	entry.WithFields(logrus.Fields{
		"key":      key,
		"location": p.Store.Location(key),
		"size":     humanize.Bytes(uint64(len(content))),
	}).Info("Artifact written")

	stored, err := p.Store.Read(ctx, key)
	if err != nil {
		serr := asStorageError("read", key, err)
		attempt.ErrorMsg = serr.Error()
		entry.WithError(err).WithField("key", key).Error("Artifact read failed")
		return serr
	}
	if err := Display(p.Out, key, stored); err != nil {
		derr := fmt.Errorf("display artifact %q: %w", key, err)
		attempt.ErrorMsg = derr.Error()
		entry.WithError(err).Error("Artifact display failed")
		return derr
	}

	attempt.Status = attemptSuccess
	return nil
}

func asStorageError(op, key string, err error) error {
	var serr *StorageError
	if errors.As(err, &serr) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
