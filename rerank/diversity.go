package rerank

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// Diversity 是类别多样性节点：限制每个类别最多保留 MaxPerCategory 个候选，
// 避免榜单被单一类目刷屏。类别来自候选的 "category" 标签
// （服务层在召回后用目录信息标注）。
//
// MaxPerCategory <= 0 表示不启用；无类别标签的候选不受限制。
type Diversity struct {
	MaxPerCategory int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.MaxPerCategory <= 0 || len(items) == 0 {
		return items, nil
	}

	seen := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		lbl, ok := it.GetLabel("category")
		if !ok || lbl.Value == "" {
			out = append(out, it)
			continue
		}
		if seen[lbl.Value] >= n.MaxPerCategory {
			continue
		}
		seen[lbl.Value]++
		out = append(out, it)
	}
	return out, nil
}
