package filter

import (
	"context"
	"encoding/json"

	"github.com/venturekit/funnel/core"
)

// Blocklist 过滤全局与用户级屏蔽名单中的物品。
// - ItemIDs 是内存中的全局屏蔽列表
// - Store 不为空时，追加读取 {Key}（全局）与 {UserKeyPrefix}:{UserID}（用户级），
//   value 为 JSON 字符串数组
// Store 读取失败时按未命中处理，不影响请求。
type Blocklist struct {
	ItemIDs       []string
	Store         core.Store
	Key           string // 全局名单 key，例如 "block:global"
	UserKeyPrefix string // 用户级名单前缀，例如 "block:user"
}

func (f *Blocklist) Name() string {
	return "filter.blocklist"
}

func (f *Blocklist) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ItemIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Store == nil {
		return false, nil
	}
	if f.Key != "" && f.hit(ctx, f.Key, item.ID) {
		return true, nil
	}
	if f.UserKeyPrefix != "" && rctx != nil && rctx.UserID != "" {
		if f.hit(ctx, f.UserKeyPrefix+":"+rctx.UserID, item.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *Blocklist) hit(ctx context.Context, key, itemID string) bool {
	data, err := f.Store.Get(ctx, key)
	if err != nil {
		return false
	}
	var ids []string
	if json.Unmarshal(data, &ids) != nil {
		return false
	}
	for _, id := range ids {
		if id == itemID {
			return true
		}
	}
	return false
}
