// Package observe 定义漏斗的观测事件下沉接口。
// 降级是漏斗的常态行为（来源失败、模型不可用、全局超时），
// 对调用方不可见，因此必须通过事件显式上报，而不是静默吞掉。
package observe

import "time"

// SourceStatus 是单次来源拉取的结果状态。
type SourceStatus string

const (
	SourceOK      SourceStatus = "ok"
	SourceError   SourceStatus = "error"
	SourceTimeout SourceStatus = "timeout"
)

// Observer 接收漏斗各阶段的观测事件。实现必须是并发安全的。
type Observer interface {
	// SourceFetch 每次来源拉取结束时上报（成功/失败/超时）。
	SourceFetch(source string, status SourceStatus, latency time.Duration, items int)

	// StageDegraded 某个阶段以降级模式完成时上报。
	StageDegraded(stage, reason string)

	// FeedbackDropped 反馈事件因缓冲满被丢弃时上报。
	FeedbackDropped()
}

// Nop 是什么都不做的 Observer。
type Nop struct{}

func (Nop) SourceFetch(string, SourceStatus, time.Duration, int) {}
func (Nop) StageDegraded(string, string)                         {}
func (Nop) FeedbackDropped()                                     {}

// Multi 把事件广播给多个 Observer。
type Multi []Observer

func (m Multi) SourceFetch(source string, status SourceStatus, latency time.Duration, items int) {
	for _, o := range m {
		o.SourceFetch(source, status, latency, items)
	}
}

func (m Multi) StageDegraded(stage, reason string) {
	for _, o := range m {
		o.StageDegraded(stage, reason)
	}
}

func (m Multi) FeedbackDropped() {
	for _, o := range m {
		o.FeedbackDropped()
	}
}
