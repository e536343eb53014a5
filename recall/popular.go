package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/model"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Popular 是流行度策略：直接读快照中的全量榜单。
//
// 榜单回答"什么在流行"而不是"什么对你是新的"：
// 刻意不排除用户已交互过的商品，也不依赖用户信息 —— 因此永远可用，
// 是整条降级链的兜底。
type Popular struct{}

func (r *Popular) Name() string { return "recall.popular" }

func (r *Popular) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
	snap *model.Snapshot,
) ([]*core.Item, error) {
	if snap == nil {
		return nil, nil
	}
	k := 0
	if rctx != nil {
		k = rctx.K
	}

	entries := snap.Popularity.TopK(k)
	out := make([]*core.Item, 0, len(entries))
	for _, e := range entries {
		it := core.NewItem(e.ProductID)
		it.Score = e.Score
		it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
		out = append(out, it)
	}
	// 榜单已按 分数/平均评分/ID 排好序，无需再排
	return out, nil
}
