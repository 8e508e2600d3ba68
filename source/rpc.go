package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/venturekit/funnel/core"
)

// RPC 是通过 HTTP 调用外部候选服务的来源。
//
// 请求格式（JSON）：
//
//	{"user_id": "u1", "item_type": "agent", "budget": 15, "params": {...}}
//
// 响应格式（JSON）：
//
//	{"candidates": [{"id": "a1", "score": 0.8, "confidence": 0.7, "meta": {...}}, ...]}
//
// 超时完全由调用方通过 ctx 控制（Fetcher 的 per-source timeout）。
type RPC struct {
	Desc     Descriptor
	Endpoint string // 例如 "http://candidates.internal/fetch"
	Client   *http.Client
}

func NewRPC(desc Descriptor, endpoint string) *RPC {
	return &RPC{
		Desc:     desc,
		Endpoint: endpoint,
		Client:   &http.Client{},
	}
}

func (s *RPC) Descriptor() Descriptor { return s.Desc }

type rpcCandidate struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	Meta       map[string]any `json:"meta,omitempty"`
}

func (s *RPC) Fetch(
	ctx context.Context,
	rctx *core.RecommendContext,
	budget int,
) ([]*core.Item, error) {
	if s.Endpoint == "" {
		return nil, fmt.Errorf("rpc source %s: endpoint is required", s.Desc.Name)
	}
	if s.Client == nil {
		s.Client = &http.Client{}
	}

	reqBody := map[string]any{
		"user_id":   rctx.UserID,
		"item_type": string(s.Desc.Type),
		"budget":    budget,
	}
	if len(rctx.Params) > 0 {
		reqBody["params"] = rctx.Params
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rpc fetch: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []rpcCandidate `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]*core.Item, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		if c.ID == "" {
			continue
		}
		it := core.NewItem(c.ID, s.Desc.Type)
		it.Score = c.Score
		it.Confidence = c.Confidence
		for k, v := range c.Meta {
			it.Meta[k] = v
		}
		out = append(out, it)
		if len(out) >= budget {
			break
		}
	}
	return out, nil
}
