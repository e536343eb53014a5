// Package recall 实现四种打分策略：协同过滤、内容、流行度与混合融合。
// 每个策略是一个 Source，对同一只读快照打分；策略自身无状态、可并发调用。
package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/model"
)

// Source 表示一个可复用的召回/打分策略单元。
// 快照逐请求传入：策略永远读取调用方当前持有的那份已发布快照。
//
// 约定：
//   - rctx.K <= 0 表示不截断（混合融合需要完整候选分布）
//   - 数据不足时返回 core.ErrInsufficientData（冷启动信号），由上层降级链消化
//   - 结果已按 分数降序、商品 ID 升序 排好（确定性 tie-break）
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext, snap *model.Snapshot) ([]*core.Item, error)
}

// sortItems 按 分数降序、ID 升序 原地排序，并按 k 截断（k <= 0 不截断）。
func sortItems(items []*core.Item, k int) []*core.Item {
	sortByScoreThenID(items)
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items
}
