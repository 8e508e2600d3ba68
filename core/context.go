package core

import (
	"sync"

	"github.com/venturekit/funnel/pkg/utils"
)

// RecommendContext 承载用户/请求/实时信息，贯穿整个漏斗透传。
// 各阶段只读；降级标记通过 MarkDegraded 记录，最终随响应返回。
type RecommendContext struct {
	RequestID string
	UserID    string

	// Request 是原始请求（校验后）。
	Request *Request

	// User 是从画像存储解析出的用户画像快照，排序阶段只读。
	User *UserProfile

	// Params 请求级上下文参数，来自 Request.Params。
	Params map[string]any

	// Labels 是用户级标签，可驱动整个漏斗行为。
	Labels map[string]utils.Label

	// degraded 记录以降级模式完成的阶段标识。
	// fan-out 阶段可能并发标记，需加锁。
	degradedMu sync.Mutex
	degraded   []string
}

// MaxResults 返回请求的最大结果数。
func (rctx *RecommendContext) MaxResults() int {
	if rctx.Request == nil {
		return 0
	}
	return rctx.Request.MaxResults
}

// MarkDegraded 记录一个以降级模式完成的阶段（幂等）。
func (rctx *RecommendContext) MarkDegraded(stage string) {
	rctx.degradedMu.Lock()
	defer rctx.degradedMu.Unlock()
	for _, s := range rctx.degraded {
		if s == stage {
			return
		}
	}
	rctx.degraded = append(rctx.degraded, stage)
}

// DegradedStages 返回所有降级阶段标识（按发生顺序）。
func (rctx *RecommendContext) DegradedStages() []string {
	rctx.degradedMu.Lock()
	defer rctx.degradedMu.Unlock()
	out := make([]string, len(rctx.degraded))
	copy(out, rctx.degraded)
	return out
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamFloat 读取数值型请求参数，缺失或类型不符时返回默认值。
func (rctx *RecommendContext) ParamFloat(key string, def float64) float64 {
	if rctx.Params == nil {
		return def
	}
	switch v := rctx.Params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// ParamString 读取字符串型请求参数。
func (rctx *RecommendContext) ParamString(key string) string {
	if rctx.Params == nil {
		return ""
	}
	if s, ok := rctx.Params[key].(string); ok {
		return s
	}
	return ""
}
