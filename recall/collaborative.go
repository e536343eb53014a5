package recall

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/model"
	"github.com/rushteam/shoprec/pkg/utils"
	"github.com/rushteam/shoprec/pkg/vectormath"
)

// DefaultNeighbors 是协同过滤默认考虑的相似用户数。
const DefaultNeighbors = 50

// Collaborative 是基于用户的协同过滤策略（User-based CF, u2i）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 目标用户在矩阵中无行 → 返回 ErrInsufficientData（冷启动信号）
//  2. 与其余所有用户计算余弦相似度（零范数用户自然被排除）
//  3. 取 TopN 相似用户（N 默认 50），相似度并列按用户 ID 升序
//  4. 对目标用户未交互过的候选物品：
//     score = Σ(similarity_i × weight_i) / Σ similarity_i（加权平均，
//     分母为对该物品有贡献的邻居相似度之和，抵消邻域规模/偏斜）
//  5. 按 分数降序、商品 ID 升序 返回 TopK
type Collaborative struct {
	// Neighbors 相似用户数，<= 0 时取 DefaultNeighbors
	Neighbors int
}

func (r *Collaborative) Name() string { return "recall.collaborative" }

func (r *Collaborative) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
	snap *model.Snapshot,
) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" || snap == nil {
		return nil, core.ErrInsufficientData
	}

	target := snap.Matrix.Row(rctx.UserID)
	if target == nil {
		return nil, core.ErrInsufficientData
	}

	topN := r.Neighbors
	if topN <= 0 {
		topN = DefaultNeighbors
	}

	// 与其余用户的相似度（只保留正相似度；零范数向量余弦为 0，自然排除）
	type userSimilarity struct {
		userID     string
		similarity float64
	}
	sims := make([]userSimilarity, 0)
	for _, userID := range snap.Matrix.Users() {
		if userID == rctx.UserID {
			continue
		}
		sim := vectormath.Cosine(target, snap.Matrix.Row(userID))
		if sim > 0 {
			sims = append(sims, userSimilarity{userID: userID, similarity: sim})
		}
	}

	// TopN 相似用户：相似度降序，并列按用户 ID 升序
	sort.Slice(sims, func(i, j int) bool {
		if sims[i].similarity != sims[j].similarity {
			return sims[i].similarity > sims[j].similarity
		}
		return sims[i].userID < sims[j].userID
	})
	if len(sims) > topN {
		sims = sims[:topN]
	}

	// 候选物品加权平均：
	//   numerator[item]   = Σ similarity × weight
	//   denominator[item] = Σ similarity（仅统计拥有该物品的邻居）
	numerator := make(map[string]float64)
	denominator := make(map[string]float64)
	for _, s := range sims {
		for itemID, weight := range snap.Matrix.Row(s.userID) {
			if _, ok := target[itemID]; ok {
				continue // 跳过目标用户已交互的物品
			}
			numerator[itemID] += s.similarity * weight
			denominator[itemID] += s.similarity
		}
	}

	out := make([]*core.Item, 0, len(numerator))
	for itemID, num := range numerator {
		it := core.NewItem(itemID)
		it.Score = num / denominator[itemID]
		it.PutLabel("recall_source", utils.Label{Value: "collaborative", Source: "recall"})
		out = append(out, it)
	}

	return sortItems(out, rctx.K), nil
}
