package rerank

import (
	"context"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/pipeline"
)

// TopN 是最终截断节点：保留前 N 条。
// N <= 0 时取请求的 maxResults。输入顺序原样保留（稳定截断）。
type TopN struct {
	N int
}

func (n *TopN) Name() string        { return "rerank.topn" }
func (n *TopN) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *TopN) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 {
		limit = rctx.MaxResults()
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
