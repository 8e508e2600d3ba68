package source

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/pipeline"
	"github.com/venturekit/funnel/pkg/utils"
)

// DefaultOverFetchFactor 是默认的超额拉取系数：保证粗排裁剪后仍有足够候选。
const DefaultOverFetchFactor = 3.0

// Fetcher 是召集 Node：按请求解析来源集合，并发拉取并合并结果。
// 每个来源是独立的并发单元，失败或超时只贡献零条候选，绝不拖垮整个请求。
// 合并按注册顺序拼接，与各来源的完成先后无关（确定性合并）。
type Fetcher struct {
	Registry *Registry

	// OverFetchFactor 超额拉取系数，<=0 时取 DefaultOverFetchFactor。
	OverFetchFactor float64

	// Timeout 每个来源的超时时间，0 表示只受全局 deadline 约束。
	Timeout time.Duration

	// MaxConcurrent 最大并发数（0 表示无限制）。
	MaxConcurrent int

	// Observer 接收 per-source 成功/失败/超时事件。
	Observer observe.Observer
}

func (n *Fetcher) Name() string        { return "source.fetcher" }
func (n *Fetcher) Kind() pipeline.Kind { return pipeline.KindSource }

// Budget 计算单个来源的拉取预算：ceil(maxResults * overFetchFactor * weight)。
func (n *Fetcher) Budget(maxResults int, weight float64) int {
	factor := n.OverFetchFactor
	if factor <= 0 {
		factor = DefaultOverFetchFactor
	}
	return int(math.Ceil(float64(maxResults) * factor * weight))
}

func (n *Fetcher) observer() observe.Observer {
	if n.Observer == nil {
		return observe.Nop{}
	}
	return n.Observer
}

func (n *Fetcher) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if n.Registry == nil || rctx.Request == nil {
		return nil, nil
	}
	sources := n.Registry.SourcesFor(rctx.Request.ItemTypes)
	if len(sources) == 0 {
		return nil, nil
	}

	obs := n.observer()

	// 结果按来源下标归位，合并顺序与完成顺序解耦。
	results := make([][]*core.Item, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range sources {
		eg.Go(func() error {
			d := src.Descriptor()
			budget := n.Budget(rctx.Request.MaxResults, d.Weight)
			if budget <= 0 {
				return nil
			}

			fetchCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			start := time.Now()
			items, err := src.Fetch(fetchCtx, rctx, budget)
			latency := time.Since(start)

			if err != nil {
				// 单一来源故障只降级，不中断其他来源。
				status := observe.SourceError
				if errors.Is(err, context.DeadlineExceeded) {
					status = observe.SourceTimeout
				}
				obs.SourceFetch(d.Name, status, latency, 0)
				rctx.MarkDegraded("sourcing")
				return nil
			}

			if len(items) > budget {
				items = items[:budget]
			}
			for _, it := range items {
				if it == nil {
					continue
				}
				it.Source = d.Name
				if it.Type == "" {
					it.Type = d.Type
				}
				// 来源实现可能直接构造 Item 而不经过 NewItem。
				if it.Meta == nil {
					it.Meta = make(map[string]any)
				}
				// 来源权重随 item 透传，供粗排特征与 tie-break 使用。
				it.Meta["source_weight"] = d.Weight
				it.PutLabel("source", utils.Label{Value: d.Name, Source: "source"})
			}
			obs.SourceFetch(d.Name, observe.SourceOK, latency, len(items))
			results[i] = items
			return nil
		})
	}

	// 这里的 goroutine 都不返回 error；Wait 只用于等待全部完成。
	_ = eg.Wait()

	var all []*core.Item
	for _, items := range results {
		for _, it := range items {
			if it != nil {
				all = append(all, it)
			}
		}
	}
	return all, nil
}
