package rank

import (
	"context"
	"sort"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/model"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/pipeline"
	"github.com/venturekit/funnel/pkg/utils"
)

const (
	// DefaultShortlistFactor 粗排截断大小 = factor * maxResults。
	DefaultShortlistFactor = 5

	// DefaultShortlistCeiling 粗排截断的硬上限，约束精排成本。
	DefaultShortlistCeiling = 200
)

// Light 是粗排 Node：用轻量特征对大候选池做召回率优先的打分，
// 截断出有界的 shortlist。
//
// 特征：来源权重、原始置信度、静态画像亲和度。
// 排序规则（确定、可复现）：分数降序，打平时依次比较
// 来源权重（降序）→ 到达顺序（升序）→ 物品标识（字典序升序）。
//
// 降级：模型缺失或打分失败时，退化为按原始置信度降序（绝不返回空）。
type Light struct {
	Models *Holder

	// ShortlistFactor / ShortlistCeiling 控制截断大小，<=0 时取默认值。
	ShortlistFactor  int
	ShortlistCeiling int

	Observer observe.Observer
}

func (n *Light) Name() string        { return "rank.light" }
func (n *Light) Kind() pipeline.Kind { return pipeline.KindRank }

// ShortlistSize 返回给定 maxResults 下的截断大小。
func (n *Light) ShortlistSize(maxResults int) int {
	factor := n.ShortlistFactor
	if factor <= 0 {
		factor = DefaultShortlistFactor
	}
	ceiling := n.ShortlistCeiling
	if ceiling <= 0 {
		ceiling = DefaultShortlistCeiling
	}
	k := factor * maxResults
	if k > ceiling {
		k = ceiling
	}
	return k
}

func (n *Light) observer() observe.Observer {
	if n.Observer == nil {
		return observe.Nop{}
	}
	return n.Observer
}

func (n *Light) snapshot() model.Model {
	if n.Models == nil {
		return nil
	}
	return n.Models.Snapshot()
}

// SourceWeight 读取 item 携带的来源权重。
func SourceWeight(it *core.Item) float64 {
	if it.Meta == nil {
		return 0
	}
	if w, ok := it.Meta["source_weight"].(float64); ok {
		return w
	}
	return 0
}

// Features 构建粗排的轻量特征向量。
func (n *Light) Features(rctx *core.RecommendContext, it *core.Item) map[string]float64 {
	features := map[string]float64{
		"source_weight": SourceWeight(it),
		"confidence":    it.Confidence,
	}
	if rctx.User != nil {
		features["profile_affinity"] = rctx.User.PreferenceWeight("type:"+string(it.Type)) +
			rctx.User.PreferenceWeight("item:"+it.ID)
	}
	return features
}

type lightEntry struct {
	item    *core.Item
	arrival int // 在合并后候选池中的下标
	weight  float64
}

func (n *Light) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	entries := make([]lightEntry, 0, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		entries = append(entries, lightEntry{item: it, arrival: i, weight: SourceWeight(it)})
	}

	scoredBy := ""
	if active := n.snapshot(); active != nil {
		scoredBy = active.Name()
		for _, e := range entries {
			score, err := active.Predict(n.Features(rctx, e.item))
			if err != nil {
				scoredBy = ""
				break
			}
			e.item.Score = score
		}
	}

	if scoredBy == "" {
		// 降级：按原始置信度排序
		for _, e := range entries {
			e.item.Score = e.item.Confidence
		}
		scoredBy = "fallback"
		rctx.MarkDegraded("light_ranking")
		n.observer().StageDegraded("light_ranking", "model unavailable")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.item.Score != b.item.Score {
			return a.item.Score > b.item.Score
		}
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if a.arrival != b.arrival {
			return a.arrival < b.arrival
		}
		return a.item.ID < b.item.ID
	})

	k := n.ShortlistSize(rctx.MaxResults())
	if len(entries) > k {
		entries = entries[:k]
	}

	out := make([]*core.Item, len(entries))
	for i, e := range entries {
		e.item.PutLabel("light_scored_by", utils.Label{Value: scoredBy, Source: "rank"})
		out[i] = e.item
	}
	return out, nil
}
