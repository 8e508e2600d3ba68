package pipeline

import (
	"context"

	"github.com/venturekit/funnel/core"
)

// Pipeline 把漏斗逻辑拆成可组合的 Node 链（Source → Rank → ReRank → PostProcess）。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
