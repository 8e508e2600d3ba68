package rerank

import (
	"context"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/pipeline"
)

// Dedup 按物品标识去重，同一 ID 保留分数最高的那次出现。
// 分数相同时保留靠前的（稳定）。
type Dedup struct{}

func (n *Dedup) Name() string        { return "rerank.dedup" }
func (n *Dedup) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Dedup) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	best := make(map[string]*core.Item, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		old, ok := best[it.ID]
		if !ok {
			best[it.ID] = it
			order = append(order, it.ID)
			continue
		}
		if it.Score > old.Score {
			// 合并历史标签，保持可追溯
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			best[it.ID] = it
		}
	}

	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out, nil
}
