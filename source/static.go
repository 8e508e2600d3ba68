package source

import (
	"context"
	"encoding/json"

	"github.com/venturekit/funnel/core"
)

// Static 是静态目录来源：候选 ID 来自 Store 或内存列表。
// - 如果 Store 实现了 KeyValueStore，优先使用 ZRange（有序集合，按分数排序）
// - 否则从普通 key 读取 JSON 数组
// - Store 为空或读取失败时，使用内存中的 IDs 作为 fallback
// 适合智能体目录、资源清单、热门榜单这类慢变化候选域。
type Static struct {
	Desc  Descriptor
	Store core.Store
	Key   string   // 存储 key，例如 "catalog:agents"
	IDs   []string // fallback 内存列表

	// Confidence 是该来源产出候选的原始置信度，0 时取 Weight。
	Confidence float64
}

func (s *Static) Descriptor() Descriptor { return s.Desc }

func (s *Static) Fetch(
	ctx context.Context,
	_ *core.RecommendContext,
	budget int,
) ([]*core.Item, error) {
	var ids []string

	if s.Store != nil && s.Key != "" {
		if kv, ok := s.Store.(core.KeyValueStore); ok {
			members, err := kv.ZRange(ctx, s.Key, 0, int64(budget)-1)
			if err == nil && len(members) > 0 {
				ids = members
			}
		}
		if len(ids) == 0 {
			data, err := s.Store.Get(ctx, s.Key)
			if err == nil {
				var parsed []string
				if json.Unmarshal(data, &parsed) == nil {
					ids = parsed
				}
			}
		}
	}

	if len(ids) == 0 {
		ids = s.IDs
	}
	if len(ids) > budget {
		ids = ids[:budget]
	}

	conf := s.Confidence
	if conf == 0 {
		conf = s.Desc.Weight
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id, s.Desc.Type)
		it.Confidence = conf
		it.Score = conf
		out = append(out, it)
	}
	return out, nil
}
