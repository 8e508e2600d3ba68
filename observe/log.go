package observe

import (
	"time"

	"go.uber.org/zap"
)

// Logging 是基于 zap 的 Observer 实现，把降级事件落到结构化日志。
type Logging struct {
	log *zap.Logger
}

func NewLogging(log *zap.Logger) *Logging {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logging{log: log}
}

func (l *Logging) SourceFetch(source string, status SourceStatus, latency time.Duration, items int) {
	if status == SourceOK {
		l.log.Debug("source fetch",
			zap.String("source", source),
			zap.Duration("latency", latency),
			zap.Int("items", items))
		return
	}
	l.log.Warn("source fetch degraded",
		zap.String("source", source),
		zap.String("status", string(status)),
		zap.Duration("latency", latency))
}

func (l *Logging) StageDegraded(stage, reason string) {
	l.log.Warn("stage degraded",
		zap.String("stage", stage),
		zap.String("reason", reason))
}

func (l *Logging) FeedbackDropped() {
	l.log.Warn("feedback event dropped")
}
