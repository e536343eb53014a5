package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/model"
	"github.com/rushteam/shoprec/pkg/utils"
	"github.com/rushteam/shoprec/pkg/vectormath"
)

// Content 是基于内容（TF-IDF）的策略。
//
// 两种用法：
//   - SimilarTo：给定商品，按词项向量余弦找相似商品（i2i）
//   - Recall：给定用户，用其交互过商品向量的加权质心作为内容画像，
//     对未交互商品按质心相似度打分（u2i）
type Content struct{}

func (r *Content) Name() string { return "recall.content" }

// SimilarTo 返回与目标商品最相似的 k 个商品（不含其自身）。
// 目标商品不在索引中时返回 NOT_FOUND；目录不足 k+1 个时返回全部可用项。
func (r *Content) SimilarTo(
	_ context.Context,
	snap *model.Snapshot,
	productID string,
	k int,
) ([]*core.Item, error) {
	if snap == nil {
		return nil, core.ErrProductNotFound
	}
	// 向量为空（不在索引中 / 无可用词项）都视为无内容信号
	target := snap.Index.Vector(productID)
	if len(target) == 0 {
		return nil, core.ErrProductNotFound
	}

	out := make([]*core.Item, 0, snap.NumProducts)
	for _, pid := range snap.Index.Products() {
		if pid == productID {
			continue // 永不把商品自身计入结果
		}
		it := core.NewItem(pid)
		it.Score = vectormath.Cosine(target, snap.Index.Vector(pid))
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	return sortItems(out, k), nil
}

// Recall 基于用户内容画像打分。
//
// 画像 = Σ weight(user,item) × vector(item)，权重沿用用户-物品矩阵的口径。
// 用户无任何行为、或其行为商品都没有可用文本向量时，返回 ErrInsufficientData。
func (r *Content) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
	snap *model.Snapshot,
) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" || snap == nil {
		return nil, core.ErrInsufficientData
	}

	row := snap.Matrix.Row(rctx.UserID)
	if row == nil {
		return nil, core.ErrInsufficientData
	}

	// 加权质心
	centroid := make(map[string]float64)
	for itemID, weight := range row {
		vec := snap.Index.Vector(itemID)
		for term, v := range vec {
			centroid[term] += weight * v
		}
	}
	if len(centroid) == 0 {
		// 目录文本为空（或交互商品均无向量）→ 冷启动信号
		return nil, core.ErrInsufficientData
	}

	out := make([]*core.Item, 0, snap.NumProducts)
	for _, pid := range snap.Index.Products() {
		if _, ok := row[pid]; ok {
			continue // 跳过已交互商品
		}
		it := core.NewItem(pid)
		it.Score = vectormath.Cosine(centroid, snap.Index.Vector(pid))
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	return sortItems(out, rctx.K), nil
}
