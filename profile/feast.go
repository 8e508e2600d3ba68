package profile

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/venturekit/funnel/core"
)

// FeastEnricher 从 Feast Feature Server 拉取离线计算的用户偏好特征，
// 合并进画像快照供精排使用。画像本体（历史、反馈权重）仍由 Store 负责，
// Feast 只补充离线特征，拉取失败时按无补充处理。
type FeastEnricher struct {
	client  *feastsdk.GrpcClient
	project string

	// Features 要拉取的特征名列表，例如
	// ["user_stats:pref_agent", "user_stats:pref_content"]。
	Features []string

	// EntityKey 实体键名，空时为 "user_id"。
	EntityKey string
}

// NewFeastEnricher 连接 Feast Feature Server（gRPC）。
func NewFeastEnricher(host string, port int, project string, features []string) (*FeastEnricher, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastEnricher{
		client:   client,
		project:  project,
		Features: features,
	}, nil
}

func (e *FeastEnricher) entityKey() string {
	if e.EntityKey == "" {
		return "user_id"
	}
	return e.EntityKey
}

// Enrich 把该用户的在线特征写入画像 Preferences（特征名取冒号后的短名）。
func (e *FeastEnricher) Enrich(ctx context.Context, p *core.UserProfile) error {
	if len(e.Features) == 0 || p == nil {
		return nil
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: e.Features,
		Entities: []feastsdk.Row{
			{e.entityKey(): feastsdk.StrVal(p.UserID)},
		},
		Project: e.project,
	}
	resp, err := e.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return fmt.Errorf("feast online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil
	}
	for _, name := range e.Features {
		val, ok := rows[0][name]
		if !ok {
			continue
		}
		if f, ok := floatValue(val); ok {
			p.SetPreference(shortName(name), f)
		}
	}
	return nil
}

func shortName(feature string) string {
	for i := len(feature) - 1; i >= 0; i-- {
		if feature[i] == ':' {
			return feature[i+1:]
		}
	}
	return feature
}

func floatValue(v *feasttypes.Value) (float64, bool) {
	switch val := v.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return val.DoubleVal, true
	case *feasttypes.Value_FloatVal:
		return float64(val.FloatVal), true
	case *feasttypes.Value_Int64Val:
		return float64(val.Int64Val), true
	case *feasttypes.Value_Int32Val:
		return float64(val.Int32Val), true
	default:
		return 0, false
	}
}
