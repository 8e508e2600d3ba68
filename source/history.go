package source

import (
	"context"

	"github.com/venturekit/funnel/core"
)

// ProfileReader 是历史来源需要的最小画像读取接口。
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*core.UserProfile, error)
}

// History 是基于用户交互历史的个性化来源：
// 把用户最近交互过的物品重新作为候选（回访/继续使用场景）。
// 对画像只读；没有历史时返回空，不报错。
type History struct {
	Desc     Descriptor
	Profiles ProfileReader

	// Actions 只回放这些动作类型（空表示全部）。
	Actions []string

	// Confidence 产出候选的置信度，0 时取 0.5。
	Confidence float64
}

func (s *History) Descriptor() Descriptor { return s.Desc }

func (s *History) Fetch(
	ctx context.Context,
	rctx *core.RecommendContext,
	budget int,
) ([]*core.Item, error) {
	if s.Profiles == nil || rctx.UserID == "" {
		return nil, nil
	}

	profile, err := s.Profiles.Get(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(s.Actions))
	for _, a := range s.Actions {
		allow[a] = true
	}

	conf := s.Confidence
	if conf == 0 {
		conf = 0.5
	}

	seen := make(map[string]bool, budget)
	out := make([]*core.Item, 0, budget)
	// 新的交互在前
	for i := len(profile.History) - 1; i >= 0 && len(out) < budget; i-- {
		in := profile.History[i]
		if in.ItemID == "" || seen[in.ItemID] {
			continue
		}
		if len(allow) > 0 && !allow[in.Action] {
			continue
		}
		seen[in.ItemID] = true
		it := core.NewItem(in.ItemID, s.Desc.Type)
		it.Confidence = conf
		it.Score = conf
		it.Meta["last_action"] = in.Action
		out = append(out, it)
	}
	return out, nil
}
