package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/switchinfo/internal/model"
)

// MissingFields 返回为空的必填字段名，顺序固定
// 只判断空串：口令可以由空格组成，host 等字段在加载配置时已去除首尾空白
func MissingFields(target model.DeviceTarget) []string {
	missing := make([]string, 0)
	for _, f := range target.RequiredFields() {
		if f.Value == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Validate 检查设备必填字段；缺失时记录缺失字段名并返回 false，齐全时不输出日志
func Validate(log *logrus.Logger, target model.DeviceTarget) bool {
	missing := MissingFields(target)
	if len(missing) == 0 {
		return true
	}
	log.WithField("missing", missing).Errorf("Required environment variables are not set: %s", strings.Join(missing, ", "))
	return false
}
