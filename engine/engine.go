package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/filter"
	"github.com/venturekit/funnel/model"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/pipeline"
	"github.com/venturekit/funnel/profile"
	"github.com/venturekit/funnel/rank"
	"github.com/venturekit/funnel/rerank"
	"github.com/venturekit/funnel/source"
)

// State 是单个请求的流水线状态。
// 状态严格顺序推进，任何阶段都不可跳过；请求校验失败与超限直接返回
// 错误（无 Result），来源/模型故障一律作为降级继续。
type State string

const (
	StateSourcing       State = "sourcing"
	StateLightRanking   State = "light_ranking"
	StateHeavyRanking   State = "heavy_ranking"
	StatePostProcessing State = "post_processing"
	StateDone           State = "done"
)

// Result 是一次推荐请求的响应。
type Result struct {
	RequestID string
	Items     []*core.Item
	// Degraded 列出以降级模式完成的阶段（空表示全程正常）。
	Degraded []string
	// State 是请求终止时的流水线状态（Done 或截断时的最后完成态）。
	State   State
	Elapsed time.Duration
}

// Options 是引擎的配置面。
type Options struct {
	// OverFetchFactor 超额拉取系数，<=0 取默认值 3。
	OverFetchFactor float64
	// SourceTimeout 单来源超时。
	SourceTimeout time.Duration
	// MaxConcurrentFetch 来源拉取的最大并发（0 不限制）。
	MaxConcurrentFetch int
	// ShortlistFactor / ShortlistCeiling 粗排截断控制。
	ShortlistFactor  int
	ShortlistCeiling int
	// SimilarityPenalty 精排冗余惩罚步长。
	SimilarityPenalty float64
	// MaxPerSource 单来源多样性上限，<=0 取 ceil(maxResults/2)。
	MaxPerSource int
	// GlobalDeadline 单请求总预算；超出时返回最后完成阶段的尽力结果。
	GlobalDeadline time.Duration
	// MaxInFlight 最大并发请求数，<=0 不限制；超限立即返回 CAPACITY 错误。
	MaxInFlight int
	// FeedbackBuffer 反馈缓冲大小。
	FeedbackBuffer int

	// Blocklist / ExclusionRules 业务与安全排除。
	Blocklist      *filter.Blocklist
	ExclusionRules []*filter.Rule

	Observer observe.Observer
	Logger   *zap.Logger
}

// Engine 是漏斗编排器：对单个请求串行执行
// Sourcing → LightRanking → HeavyRanking → PostProcessing，组装响应。
// 不同请求完全独立，可并行执行，受 MaxInFlight 背压约束。
type Engine struct {
	registry *source.Registry
	profiles profile.Store
	enricher *profile.FeastEnricher

	lightModels *rank.Holder
	heavyModels *rank.Holder

	fetcher *source.Fetcher
	light   *rank.Light
	heavy   *rank.Heavy
	post    *pipeline.Pipeline

	feedback *FeedbackCollector
	observer observe.Observer
	log      *zap.Logger

	inflight chan struct{}
	deadline time.Duration
}

// New 组装引擎。registry 和 profiles 必填；模型可为 nil（对应阶段走降级）。
func New(registry *source.Registry, profiles profile.Store, lightModel, heavyModel model.Model, opts Options) *Engine {
	obs := opts.Observer
	if obs == nil {
		obs = observe.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		registry:    registry,
		profiles:    profiles,
		lightModels: rank.NewHolder(lightModel, model.Info{Stage: "light"}),
		heavyModels: rank.NewHolder(heavyModel, model.Info{Stage: "heavy"}),
		observer:    obs,
		log:         log,
		deadline:    opts.GlobalDeadline,
	}

	e.fetcher = &source.Fetcher{
		Registry:        registry,
		OverFetchFactor: opts.OverFetchFactor,
		Timeout:         opts.SourceTimeout,
		MaxConcurrent:   opts.MaxConcurrentFetch,
		Observer:        obs,
	}
	e.light = &rank.Light{
		Models:           e.lightModels,
		ShortlistFactor:  opts.ShortlistFactor,
		ShortlistCeiling: opts.ShortlistCeiling,
		Observer:         obs,
	}
	e.heavy = &rank.Heavy{
		Models:            e.heavyModels,
		SimilarityPenalty: opts.SimilarityPenalty,
		Observer:          obs,
	}

	filters := make([]filter.Filter, 0, 1+len(opts.ExclusionRules))
	if opts.Blocklist != nil {
		filters = append(filters, opts.Blocklist)
	}
	for _, r := range opts.ExclusionRules {
		if r != nil {
			filters = append(filters, r)
		}
	}
	e.post = &pipeline.Pipeline{Nodes: []pipeline.Node{
		&rerank.Dedup{},
		&rerank.Diversity{MaxPerSource: opts.MaxPerSource},
		&filter.Node{Filters: filters},
		&rerank.TopN{},
	}}

	if opts.MaxInFlight > 0 {
		e.inflight = make(chan struct{}, opts.MaxInFlight)
	}
	e.feedback = NewFeedbackCollector(profiles, obs, opts.FeedbackBuffer)
	return e
}

// SetLightModel / SetHeavyModel 热替换激活模型；在途请求不受影响。
func (e *Engine) SetLightModel(m model.Model, info model.Info) { e.lightModels.Swap(m, info) }
func (e *Engine) SetHeavyModel(m model.Model, info model.Info) { e.heavyModels.Swap(m, info) }

// WithFeastEnricher 启用 Feast 离线特征补充（可选）。
func (e *Engine) WithFeastEnricher(enricher *profile.FeastEnricher) *Engine {
	e.enricher = enricher
	return e
}

// Recommend 是漏斗的唯一读入口。
//
// 错误语义：只有请求校验失败（INVALID_INPUT）和并发超限（CAPACITY）
// 会返回错误；来源失败、模型缺失、全局超时都降级为（可能低质量的）
// 成功结果，并在 Result.Degraded 中注明。
func (e *Engine) Recommend(ctx context.Context, req *core.Request) (*Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if e.inflight != nil {
		select {
		case e.inflight <- struct{}{}:
			defer func() { <-e.inflight }()
		default:
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeCapacity,
				"max in-flight requests exceeded")
		}
	}

	if e.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deadline)
		defer cancel()
	}

	rctx := &core.RecommendContext{
		RequestID: uuid.NewString(),
		UserID:    req.UserID,
		Request:   req,
		Params:    req.Params,
	}
	rctx.User = e.loadProfile(ctx, req.UserID)

	var items []*core.Item
	state := StateSourcing
	for state != StateDone {
		items = e.runStage(ctx, state, rctx, items)

		next := nextState(state)
		if ctx.Err() != nil && next != StateDone {
			// 全局预算耗尽：以最后完成阶段的产出收尾，而不是报错
			rctx.MarkDegraded("deadline")
			e.observer.StageDegraded(string(state), "deadline exceeded")
			items = e.bestEffort(ctx, rctx, items)
			e.log.Warn("request deadline exceeded",
				zap.String("request_id", rctx.RequestID),
				zap.String("last_stage", string(state)))
			return e.result(rctx, items, state, start), nil
		}
		state = next
	}

	return e.result(rctx, items, StateDone, start), nil
}

func (e *Engine) runStage(ctx context.Context, state State, rctx *core.RecommendContext, items []*core.Item) []*core.Item {
	var node pipeline.Node
	switch state {
	case StateSourcing:
		node = e.fetcher
	case StateLightRanking:
		node = e.light
	case StateHeavyRanking:
		node = e.heavy
	case StatePostProcessing:
		out, err := e.post.Run(ctx, rctx, items)
		if err != nil {
			rctx.MarkDegraded("post_processing")
			e.observer.StageDegraded("post_processing", err.Error())
			return e.bestEffort(ctx, rctx, items)
		}
		return out
	default:
		return items
	}

	out, err := node.Process(ctx, rctx, items)
	if err != nil {
		// 阶段内部错误不升级为请求失败
		rctx.MarkDegraded(string(state))
		e.observer.StageDegraded(string(state), err.Error())
		return items
	}
	return out
}

func nextState(s State) State {
	switch s {
	case StateSourcing:
		return StateLightRanking
	case StateLightRanking:
		return StateHeavyRanking
	case StateHeavyRanking:
		return StatePostProcessing
	default:
		return StateDone
	}
}

// bestEffort 对截断返回的候选收尾：分数降序后复用去重/多样性/过滤/截断链。
// ID 唯一与多样性约束对任何响应都成立，与请求终止在哪个阶段无关；
// 这些步骤都在进程内完成，存储级名单在预算耗尽后按未命中处理。
func (e *Engine) bestEffort(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) []*core.Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	out, err := e.post.Run(ctx, rctx, items)
	if err != nil {
		// 后处理链失败时至少保证 ID 唯一与数量上限
		out, _ = (&rerank.Dedup{}).Process(ctx, rctx, items)
		if max := rctx.MaxResults(); max > 0 && len(out) > max {
			out = out[:max]
		}
	}
	return out
}

func (e *Engine) loadProfile(ctx context.Context, userID string) *core.UserProfile {
	if e.profiles == nil || userID == "" {
		return nil
	}
	p, err := e.profiles.Get(ctx, userID)
	if err != nil {
		e.log.Warn("profile load failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if e.enricher != nil {
		if err := e.enricher.Enrich(ctx, p); err != nil {
			// 补充特征失败不影响请求
			e.log.Debug("feast enrich failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return p
}

func (e *Engine) result(rctx *core.RecommendContext, items []*core.Item, state State, start time.Time) *Result {
	if items == nil {
		items = []*core.Item{}
	}
	return &Result{
		RequestID: rctx.RequestID,
		Items:     items,
		Degraded:  rctx.DegradedStages(),
		State:     state,
		Elapsed:   time.Since(start),
	}
}

// RecordInteraction 是反馈入口：追加交互历史并增量更新偏好。
// 异步执行，永不阻塞读链路。
func (e *Engine) RecordInteraction(ev FeedbackEvent) {
	e.feedback.Submit(ev)
}

// Registry 暴露来源注册表（启动期注册用）。
func (e *Engine) Registry() *source.Registry { return e.registry }

// Profiles 暴露画像存储（getProfile 能力）。
func (e *Engine) Profiles() profile.Store { return e.profiles }

// Close 释放后台资源（反馈消费协程）。
func (e *Engine) Close() {
	e.feedback.Close()
}
