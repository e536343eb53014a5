package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/model"
	"github.com/rushteam/shoprec/pkg/utils"
)

// 默认融合权重：协同 0.6 / 内容 0.4。
const (
	DefaultCollabWeight  = 0.6
	DefaultContentWeight = 0.4
)

// Hybrid 是协同 + 内容的加权融合策略，带降级链。
//
// 融合规则：候选集取两路结果的并集（均已排除已交互商品）；
// 两路原始分数量纲不同，先各自除以自身最大值归一到 [0,1]，
// 再按 0.6/0.4 加权求和，一侧缺失的子分数按 0 处理。
//
// 降级链（每次请求只评估一次）：
//   - 两路都可用 → 0.6/0.4 融合
//   - 仅内容可用（协同冷启动）→ 内容单路（权重 1.0）
//   - 仅协同可用 → 协同单路（权重 1.0）
//   - 两路都不可用（全新用户 / 目录无文本）→ 完全委托流行度榜单
//
// 该链保证对任何用户都有结果集返回，ErrInsufficientData 绝不外泄。
type Hybrid struct {
	Collaborative *Collaborative
	Content       *Content
	Popular       *Popular

	// CollabWeight / ContentWeight 融合权重，同时为 0 时取默认 0.6/0.4
	CollabWeight  float64
	ContentWeight float64
}

func (r *Hybrid) Name() string { return "recall.hybrid" }

func (r *Hybrid) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
	snap *model.Snapshot,
) ([]*core.Item, error) {
	if rctx == nil || snap == nil {
		return nil, nil
	}

	wc, wt := r.CollabWeight, r.ContentWeight
	if wc == 0 && wt == 0 {
		wc, wt = DefaultCollabWeight, DefaultContentWeight
	}

	// 两路都取全量候选分布，融合后再截断
	full := *rctx
	full.K = 0

	collabItems, err := r.collabSource().Recall(ctx, &full, snap)
	collabOK := err == nil
	if err != nil && !core.IsInsufficientData(err) {
		return nil, err
	}
	contentItems, err := r.contentSource().Recall(ctx, &full, snap)
	contentOK := err == nil
	if err != nil && !core.IsInsufficientData(err) {
		return nil, err
	}

	// 两路皆不可用：完全委托流行度榜单
	if !collabOK && !contentOK {
		items, err := r.popularSource().Recall(ctx, rctx, snap)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			it.PutLabel("fallback", utils.Label{Value: "popular", Source: "recall"})
		}
		return items, nil
	}

	// 单路可用：该路权重 1.0
	switch {
	case collabOK && !contentOK:
		wc, wt = 1.0, 0
	case contentOK && !collabOK:
		wc, wt = 0, 1.0
	}

	collabNorm := normalizeByMax(collabItems)
	contentNorm := normalizeByMax(contentItems)

	// 并集融合，缺失子分数按 0
	blended := make(map[string]*core.Item)
	add := func(id string, score float64) *core.Item {
		it, ok := blended[id]
		if !ok {
			it = core.NewItem(id)
			it.PutLabel("recall_source", utils.Label{Value: "hybrid", Source: "recall"})
			blended[id] = it
		}
		it.Score += score
		return it
	}
	for id, s := range collabNorm {
		add(id, wc*s)
	}
	for id, s := range contentNorm {
		add(id, wt*s)
	}

	out := make([]*core.Item, 0, len(blended))
	for _, it := range blended {
		out = append(out, it)
	}
	return sortItems(out, rctx.K), nil
}

func (r *Hybrid) collabSource() *Collaborative {
	if r.Collaborative != nil {
		return r.Collaborative
	}
	return &Collaborative{}
}

func (r *Hybrid) contentSource() *Content {
	if r.Content != nil {
		return r.Content
	}
	return &Content{}
}

func (r *Hybrid) popularSource() *Popular {
	if r.Popular != nil {
		return r.Popular
	}
	return &Popular{}
}

// normalizeByMax 把一组分数除以其最大值归一到 [0,1]（下限 0）。
// 最大值 <= 0 时全部归零。
func normalizeByMax(items []*core.Item) map[string]float64 {
	out := make(map[string]float64, len(items))
	var max float64
	for _, it := range items {
		if it.Score > max {
			max = it.Score
		}
	}
	for _, it := range items {
		if max > 0 && it.Score > 0 {
			out[it.ID] = it.Score / max
		} else {
			out[it.ID] = 0
		}
	}
	return out
}
