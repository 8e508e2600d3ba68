package source

import (
	"context"

	"github.com/venturekit/funnel/core"
)

// Descriptor 描述一个候选来源：标识、类型、配比权重、说明。
// 注册后不可变；全部来源构成进程级配置。
type Descriptor struct {
	// Name 是来源的唯一标识，最终结果中每个 Item 的 Source 都能映射回它。
	Name string

	// Type 是该来源产出的候选类型。
	Type core.ItemType

	// Weight ∈ [0,1]，用于按比例分配每个来源的拉取预算。
	Weight float64

	// Description 人类可读说明。
	Description string
}

// Source 表示一个可并发 fan-out 的候选来源（目录/榜单/远程服务/历史行为/...）。
// Fetch 必须尊重 ctx 的超时；budget 是本次允许返回的最大候选数。
type Source interface {
	Descriptor() Descriptor
	Fetch(ctx context.Context, rctx *core.RecommendContext, budget int) ([]*core.Item, error)
}
