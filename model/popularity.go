package model

import (
	"sort"

	"github.com/rushteam/shoprec/core"
)

// PopularityWeights 是流行度打分的行为权重。
// 默认 view=1 / purchase=3 / rating=1，与 core.InteractionWeight 口径一致。
type PopularityWeights struct {
	View     float64
	Purchase float64
	Rating   float64
}

// DefaultPopularityWeights 返回默认权重。
func DefaultPopularityWeights() PopularityWeights {
	return PopularityWeights{View: 1, Purchase: 3, Rating: 1}
}

// PopularityEntry 是榜单中的一项。
type PopularityEntry struct {
	ProductID string
	Score     float64
	AvgRating float64
}

// PopularityTable 是按流行度排好序的全量榜单。
//
// score = w_v·views + w_p·purchases + w_r·num_ratings；
// 并列时先比平均评分（高者在前），再比商品 ID（升序）。
// 榜单面向"什么在流行"，刻意不排除用户已交互过的商品。
type PopularityTable struct {
	entries []PopularityEntry
	scores  map[string]float64
}

// BuildPopularityTable 从行为聚合构建榜单。
// 没有任何行为的商品也会入榜（得分 0），保证目录非空时榜单非空。
func BuildPopularityTable(products []*core.Product, stats map[string]*core.ProductStats, w PopularityWeights) *PopularityTable {
	entries := make([]PopularityEntry, 0, len(products))
	scores := make(map[string]float64, len(products))

	for _, p := range products {
		if p == nil || p.ID == "" {
			continue
		}
		e := PopularityEntry{ProductID: p.ID}
		if st, ok := stats[p.ID]; ok {
			e.Score = w.View*float64(st.Views) +
				w.Purchase*float64(st.Purchases) +
				w.Rating*float64(len(st.Ratings))
			e.AvgRating = st.AvgRating()
		}
		entries = append(entries, e)
		scores[p.ID] = e.Score
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].AvgRating != entries[j].AvgRating {
			return entries[i].AvgRating > entries[j].AvgRating
		}
		return entries[i].ProductID < entries[j].ProductID
	})

	return &PopularityTable{entries: entries, scores: scores}
}

// TopK 返回榜单前 k 项；k <= 0 时返回全部。
func (t *PopularityTable) TopK(k int) []PopularityEntry {
	n := len(t.entries)
	if k > 0 && k < n {
		n = k
	}
	out := make([]PopularityEntry, n)
	copy(out, t.entries[:n])
	return out
}

// Score 返回某商品的流行度分数。
func (t *PopularityTable) Score(productID string) float64 {
	return t.scores[productID]
}

// Len 返回榜单长度。
func (t *PopularityTable) Len() int { return len(t.entries) }
