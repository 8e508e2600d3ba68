// Package profile 实现用户画像存储与反馈更新。
//
// 约束：
//   - Get 首次访问返回默认空画像，永远不会 "not found"
//   - 同一用户的写入串行化（并发交互不丢更新）
//   - 读是快照一致的：排序阶段拿到的画像不会被并发写改动
//   - 交互历史只追加，绝不改写或重排
package profile

import (
	"context"

	"github.com/venturekit/funnel/core"
)

// Store 是画像存储的能力契约。
type Store interface {
	// Get 返回用户画像快照；用户不存在时返回默认空画像。
	Get(ctx context.Context, userID string) (*core.UserProfile, error)

	// Append 追加一条交互并增量更新相关偏好权重。
	Append(ctx context.Context, userID string, in core.Interaction) error
}

// DefaultEMAFactor 偏好权重 EMA 更新的默认步长。
const DefaultEMAFactor = 0.2

// actionTarget 返回动作对应的偏好目标值：正反馈趋近 1，负反馈趋近 0。
func actionTarget(action string) float64 {
	switch action {
	case "dismiss", "reject", "block":
		return 0
	default:
		return 1
	}
}

// applyInteraction 把一条交互应用到画像上：追加历史 + EMA 更新偏好。
// 关联特征：item:<id> 恒更新；交互上下文带 item_type 时同时更新 type:<t>。
func applyInteraction(p *core.UserProfile, in core.Interaction, alpha float64) {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultEMAFactor
	}
	p.AppendInteraction(in)

	target := actionTarget(in.Action)
	ema := func(feature string) {
		old := p.PreferenceWeight(feature)
		p.SetPreference(feature, (1-alpha)*old+alpha*target)
	}
	ema("item:" + in.ItemID)
	if in.Context != nil {
		if t, ok := in.Context["item_type"].(string); ok && t != "" {
			ema("type:" + t)
		}
	}
}
