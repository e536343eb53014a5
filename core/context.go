package core

// RecommendContext 承载一次推荐请求的主体信息，贯穿召回/过滤/重排透传。
//
// UserID 与 ProductID 至少一个非空：
//   - 面向用户的推荐（collaborative / content / hybrid / popular）使用 UserID
//   - 相似商品查询（similarTo）使用 ProductID
//
// K <= 0 表示不截断（召回源返回全部候选，由上层 TopN 截断）。
type RecommendContext struct {
	UserID    string
	ProductID string
	K         int

	// Params 请求级上下文参数，可被过滤规则（CEL）引用。
	Params map[string]any
}
