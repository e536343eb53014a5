package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的排除规则：表达式命中的候选被移除。
//
// 表达式可引用：
//   - product.*：目录中的商品字段（id/title/category/price/rating/review_count）
//   - item.*：候选的 id 与 score
//   - label.*：候选标签（召回来源等）
//   - params.*：请求级参数
//
// 示例：
//   - product.price > 500.0          → 移除高价商品
//   - product.category == "adult"    → 移除某类目
//   - item.score < 0.05              → 移除低分候选
type RuleFilter struct {
	catalog core.Catalog
	prg     *dsl.Program
}

// NewRuleFilter 编译排除规则。表达式非法时返回错误（启动期失败，而非请求期）。
func NewRuleFilter(expr string, catalog core.Catalog) (*RuleFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{catalog: catalog, prg: prg}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule(" + f.prg.Expr() + ")" }

func (f *RuleFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return false, nil
	}
	return f.prg.Eval(f.buildInput(ctx, rctx, item))
}

func (f *RuleFilter) buildInput(ctx context.Context, rctx *core.RecommendContext, item *core.Item) map[string]any {
	// label.recall_source 直接取 value，方便表达式书写
	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	product := map[string]any{}
	if f.catalog != nil {
		if p, err := f.catalog.Get(ctx, item.ID); err == nil {
			product = map[string]any{
				"id":           p.ID,
				"title":        p.Title,
				"category":     p.Category,
				"price":        p.Price,
				"rating":       p.Rating,
				"review_count": p.ReviewCount,
			}
		}
	}

	var params map[string]any
	if rctx != nil {
		params = rctx.Params
	}
	if params == nil {
		params = map[string]any{}
	}

	return map[string]any{
		"item": map[string]any{
			"id":    item.ID,
			"score": item.Score,
		},
		"label":   labels,
		"product": product,
		"params":  params,
	}
}
