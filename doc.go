// Package shoprec 是一个电商推荐打分引擎（Shop Recommender）。
//
// 设计要点：
// - Log-first: 行为日志是唯一事实来源，所有模型由日志+目录派生、整体重建
// - Snapshot-swap: 派生模型打包为不可变快照，原子切换，读请求永不阻塞于重建
// - Fallback-chain: 协同 → 内容 → 流行度逐级降级，冷启动用户永远有结果
// - Labels-first: labels 全链路透传（召回来源 / 降级原因 / 类别），支持 explain 与策略驱动
package shoprec

import (
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/service"
)

// 轻量 facade：便于用户直接 import "shoprec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

type Service = service.Service
type Recommendation = service.Recommendation

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
