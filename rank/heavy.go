package rank

import (
	"context"
	"sort"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/model"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/pipeline"
	"github.com/venturekit/funnel/pkg/conv"
	"github.com/venturekit/funnel/pkg/utils"
)

// DefaultSimilarityPenalty 同类同源冗余惩罚的默认步长。
const DefaultSimilarityPenalty = 0.05

// Heavy 是精排 Node：用画像展开特征对 shortlist 重打分，
// 并对与更高分候选过于相似的候选做冗余惩罚。
//
// 不改变集合成员：输入与输出是同一批 item，只更新 Score/Confidence。
//
// 幂等性：特征只取不随精排变化的属性（来源权重、画像偏好、元信息数值），
// 惩罚是模型分排名的纯函数，因此对自身输出重跑一遍得到相同顺序。
//
// 降级：模型缺失时按粗排顺序原样透传（可观测）。
type Heavy struct {
	Models *Holder

	// SimilarityPenalty 每个更高分同类同源候选带来的减分，<=0 时取默认值。
	SimilarityPenalty float64

	Observer observe.Observer
}

func (n *Heavy) Name() string        { return "rank.heavy" }
func (n *Heavy) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Heavy) observer() observe.Observer {
	if n.Observer == nil {
		return observe.Nop{}
	}
	return n.Observer
}

func (n *Heavy) snapshot() model.BatchModel {
	if n.Models == nil {
		return nil
	}
	m := n.Models.Snapshot()
	if m == nil {
		return nil
	}
	if bm, ok := m.(model.BatchModel); ok {
		return bm
	}
	return &singleBatch{m}
}

// singleBatch 把单条模型适配成批量接口。
type singleBatch struct {
	model.Model
}

func (s *singleBatch) PredictBatch(featuresList []map[string]float64) ([]float64, error) {
	out := make([]float64, len(featuresList))
	for i, f := range featuresList {
		score, err := s.Predict(f)
		if err != nil {
			return nil, err
		}
		out[i] = score
	}
	return out, nil
}

// Features 构建精排特征：画像偏好以 pref_ 前缀展开，叠加来源权重与元信息数值。
// 刻意不使用 Score/Confidence 这类会被精排自身改写的字段，保证幂等。
func (n *Heavy) Features(rctx *core.RecommendContext, it *core.Item) map[string]float64 {
	features := map[string]float64{
		"source_weight": SourceWeight(it),
	}
	for k, v := range it.Meta {
		if k == "source_weight" {
			continue
		}
		if f, ok := conv.ToFloat64(v); ok {
			features["meta_"+k] = f
		}
	}
	if rctx.User != nil {
		features["pref_type"] = rctx.User.PreferenceWeight("type:" + string(it.Type))
		features["pref_item"] = rctx.User.PreferenceWeight("item:" + it.ID)
		if goal := rctx.ParamString("goal"); goal != "" && rctx.User.HasGoal(goal) {
			features["pref_goal"] = 1
		}
	}
	return features
}

type heavyEntry struct {
	item     *core.Item
	modelRaw float64
	final    float64
}

func (n *Heavy) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	active := n.snapshot()
	if active == nil {
		n.degrade(rctx, items, "model unavailable")
		return items, nil
	}

	featuresList := make([]map[string]float64, len(items))
	for i, it := range items {
		featuresList[i] = n.Features(rctx, it)
	}
	scores, err := active.PredictBatch(featuresList)
	if err != nil || len(scores) != len(items) {
		n.degrade(rctx, items, "predict failed")
		return items, nil
	}

	entries := make([]heavyEntry, len(items))
	for i, it := range items {
		entries[i] = heavyEntry{item: it, modelRaw: scores[i]}
	}

	// 先按模型分确定排名（打平用物品标识，保证确定性），
	// 再自上而下累计同类同源惩罚。
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].modelRaw != entries[j].modelRaw {
			return entries[i].modelRaw > entries[j].modelRaw
		}
		return entries[i].item.ID < entries[j].item.ID
	})

	penalty := n.SimilarityPenalty
	if penalty <= 0 {
		penalty = DefaultSimilarityPenalty
	}
	type bucket struct {
		typ core.ItemType
		src string
	}
	seen := make(map[bucket]int, len(entries))
	for i := range entries {
		b := bucket{typ: entries[i].item.Type, src: entries[i].item.Source}
		entries[i].final = entries[i].modelRaw - penalty*float64(seen[b])
		if entries[i].final < 0 {
			entries[i].final = 0
		}
		seen[b]++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].final > entries[j].final
	})

	out := make([]*core.Item, len(entries))
	for i := range entries {
		it := entries[i].item
		it.Score = entries[i].final
		it.Confidence = clamp01(entries[i].modelRaw)
		it.PutLabel("scored_by", utils.Label{Value: active.Name(), Source: "rank"})
		out[i] = it
	}
	return out, nil
}

func (n *Heavy) degrade(rctx *core.RecommendContext, items []*core.Item, reason string) {
	rctx.MarkDegraded("heavy_ranking")
	n.observer().StageDegraded("heavy_ranking", reason)
	for _, it := range items {
		if it != nil {
			it.PutLabel("scored_by", utils.Label{Value: "fallback", Source: "rank"})
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
