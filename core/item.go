package core

import (
	"time"

	"github.com/venturekit/funnel/pkg/utils"
)

// ItemType 是候选物品的类型标签，对应不同的候选域。
type ItemType string

const (
	ItemTypeAgent          ItemType = "agent"           // 智能体
	ItemTypeContent        ItemType = "content"         // 内容
	ItemTypeBusinessAction ItemType = "business_action" // 业务动作
	ItemTypeResource       ItemType = "resource"        // 资源
)

// ValidItemType 检查类型标签是否属于固定集合。
func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeAgent, ItemTypeContent, ItemTypeBusinessAction, ItemTypeResource:
		return true
	}
	return false
}

// Item 是漏斗链路中的统一承载结构：分数、置信度、来源、元信息、标签。
// Score 的语义随阶段变化（原始来源分 → 粗排分 → 精排分）；
// ID 与 Source 在全链路保持不变，用于去重与来源追溯。
type Item struct {
	ID         string
	Type       ItemType
	Score      float64
	Confidence float64 // [0,1]
	Source     string  // 产生该候选的来源标识
	Meta       map[string]any
	Labels     map[string]utils.Label
	CreatedAt  time.Time
}

func NewItem(id string, typ ItemType) *Item {
	return &Item{
		ID:        id,
		Type:      typ,
		Meta:      make(map[string]any),
		Labels:    make(map[string]utils.Label),
		CreatedAt: time.Now(),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
