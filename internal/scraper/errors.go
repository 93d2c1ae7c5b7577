package scraper

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrMissingCredential = errors.New("缺少抓取服务凭证")
	ErrSourceStartFailed = errors.New("启动抓取任务失败")
	ErrSourceRunFailed   = errors.New("抓取任务执行失败")
	ErrSourceTimeout     = errors.New("等待抓取任务超时")
	ErrDatasetFetch      = errors.New("获取抓取结果失败")
)

// SourceError 包含详细错误信息的自定义错误
type SourceError struct {
	RunID   string
	Op      string
	BaseErr error
	Detail  string
}

func (e *SourceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 运行ID:%s): %s", e.BaseErr, e.Op, e.RunID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 运行ID:%s)", e.BaseErr, e.Op, e.RunID)
}

func (e *SourceError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *SourceError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewStartError(detail string) error {
	return &SourceError{
		Op:      "start",
		BaseErr: ErrSourceStartFailed,
		Detail:  detail,
	}
}

func NewRunFailedError(runID, status string) error {
	return &SourceError{
		RunID:   runID,
		Op:      "poll",
		BaseErr: ErrSourceRunFailed,
		Detail:  fmt.Sprintf("终态: %s", status),
	}
}

func NewTimeoutError(runID, detail string) error {
	return &SourceError{
		RunID:   runID,
		Op:      "poll",
		BaseErr: ErrSourceTimeout,
		Detail:  detail,
	}
}

func NewDatasetError(runID, detail string) error {
	return &SourceError{
		RunID:   runID,
		Op:      "dataset",
		BaseErr: ErrDatasetFetch,
		Detail:  detail,
	}
}
