package core

import "time"

// InteractionType 是行为事件类型的封闭枚举。
type InteractionType string

const (
	InteractionView     InteractionType = "view"     // 浏览
	InteractionPurchase InteractionType = "purchase" // 购买
	InteractionRating   InteractionType = "rating"   // 评分（1-5）
	InteractionWishlist InteractionType = "wishlist" // 收藏
)

// ValidInteractionType 判断事件类型是否合法。
func ValidInteractionType(t InteractionType) bool {
	switch t {
	case InteractionView, InteractionPurchase, InteractionRating, InteractionWishlist:
		return true
	}
	return false
}

// Interaction 是一条行为事件，追加后不可变。
// 修正通过追加新事件表达，日志本身只增不改不删。
type Interaction struct {
	ID        int64           // 单调递增，由 InteractionStore 分配
	UserID    string          //
	ProductID string          //
	Type      InteractionType //
	Rating    int             // 仅 Type == rating 时有效，取值 1-5
	Timestamp time.Time       // 缺省时由 Clock 赋值
}

// InteractionWeight 是行为 → 权重的统一映射：
//
//	view → 1.0，wishlist → 2.0，purchase → 3.0，rating → 原始评分（1-5）
//
// 同一 (user, item) 的多次行为权重累加、不封顶。
// 用户-物品矩阵与流行度打分共用此权重，保证口径一致。
func InteractionWeight(t InteractionType, rating int) float64 {
	switch t {
	case InteractionView:
		return 1.0
	case InteractionWishlist:
		return 2.0
	case InteractionPurchase:
		return 3.0
	case InteractionRating:
		return float64(rating)
	}
	return 0
}

// ProductStats 是单个商品的行为聚合，供流行度排序使用。
type ProductStats struct {
	Views     int   // 浏览次数
	Purchases int   // 购买次数
	Wishlists int   // 收藏次数
	Ratings   []int // 评分列表（1-5）
}

// AvgRating 返回平均评分，无评分时为 0。
func (s *ProductStats) AvgRating() float64 {
	if len(s.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range s.Ratings {
		sum += r
	}
	return float64(sum) / float64(len(s.Ratings))
}
