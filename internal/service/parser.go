package service

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/pkg/textfsm"
)

// Parser 将原始输出解析为结构化记录
// 无匹配模板或解析结果为空时返回原始文本；返回 error 时结果仍是可用的原始文本
type Parser interface {
	Parse(platform, command, raw string) (model.CommandResult, error)
}

// RawParser 不做解析
type RawParser struct{}

func (RawParser) Parse(_, _, raw string) (model.CommandResult, error) {
	return model.TextResult(raw), nil
}

// TemplateParser 基于 TextFSM 模板索引的解析器
type TemplateParser struct {
	index *textfsm.Index
}

// NewParser 加载模板目录；目录或索引不可用时记录警告并退化为 RawParser
func NewParser(dir string, log *logrus.Logger) Parser {
	if dir == "" {
		log.Warn("Template directory not configured; structured parsing disabled")
		return RawParser{}
	}
	ix, err := textfsm.LoadIndex(dir)
	if err != nil {
		log.WithError(err).WithField("dir", dir).Warn("Template index unavailable; structured parsing disabled")
		return RawParser{}
	}
	log.WithFields(logrus.Fields{"dir": dir, "templates": len(ix.Entries())}).Debug("Template index loaded")
	return &TemplateParser{index: ix}
}

func (p *TemplateParser) Parse(platform, command, raw string) (model.CommandResult, error) {
	res, _, err := p.index.ParseCommand("", platform, command, raw)
	if errors.Is(err, textfsm.ErrNoTemplate) {
		return model.TextResult(raw), nil
	}
	if err != nil {
		return model.TextResult(raw), err
	}
	if len(res.Rows) == 0 {
		return model.TextResult(raw), nil
	}
	return model.RecordsResult(res.Header, res.Rows), nil
}
