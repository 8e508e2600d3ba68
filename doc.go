// Package funnel 是一个多级推荐漏斗（Recommendation Funnel）。
//
// 设计要点：
// - Funnel-first: 请求按阶段收敛（Sourcing → LightRanking → HeavyRanking → PostProcessing）
// - 确定性: 并发拉取按注册顺序合并，排序平手规则固定，同输入必同输出
// - 降级优先: 任一阶段失败只降级不失败，结果带阶段级降级标记
// - Node 可扩展: 每个阶段都是 pipeline.Node，自定义 Node 即可插拔扩展
package funnel

import "github.com/venturekit/funnel/pipeline"

// 轻量 facade：便于用户直接 import "funnel" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindSource      = pipeline.KindSource
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
