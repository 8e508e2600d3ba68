package rerank

import (
	"context"
	"math"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/pipeline"
)

// Diversity 是来源多样性约束：单一来源最多贡献 MaxPerSource 条，
// 超出的从低分端丢弃（输入按分数降序时，顺序扫描即满足）。
type Diversity struct {
	// MaxPerSource 单一来源上限；<=0 时取 ceil(maxResults/2)。
	MaxPerSource int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

// CapFor 返回给定 maxResults 下的单来源上限。
func (n *Diversity) CapFor(maxResults int) int {
	if n.MaxPerSource > 0 {
		return n.MaxPerSource
	}
	return int(math.Ceil(float64(maxResults) / 2))
}

func (n *Diversity) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.CapFor(rctx.MaxResults())
	counts := make(map[string]int, 8)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if counts[it.Source] >= limit {
			continue
		}
		counts[it.Source]++
		out = append(out, it)
	}
	return out, nil
}
