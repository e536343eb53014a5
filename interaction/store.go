// Package interaction 实现行为事件的追加日志（append-only log）。
// 日志是所有派生模型的唯一事实来源：事件追加后不可改不可删，
// 修正通过追加新事件表达。
package interaction

import (
	"context"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// DefaultByUserLimit 是 ByUser 的默认返回条数。
const DefaultByUserLimit = 50

// Store 是内存实现的行为日志。
//
// 并发模型：单写者纪律 —— 所有 Append 通过同一把锁串行化，
// 保证事件 ID 单调递增且不会出现部分写入；读取走读锁，不阻塞于重建。
type Store struct {
	mu      sync.RWMutex
	events  []core.Interaction
	byUser  map[string][]int // userID -> 事件在 events 中的下标（按追加序）
	nextID  int64
	catalog core.Catalog
	clock   core.Clock
}

// NewStore 创建行为日志。catalog 用于摄入时校验商品存在；
// clock 为空时使用系统时钟。
func NewStore(catalog core.Catalog, clock core.Clock) *Store {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Store{
		byUser:  make(map[string][]int),
		nextID:  1,
		catalog: catalog,
		clock:   clock,
	}
}

// Append 校验并追加一条行为事件。
//
// 校验规则（任一违反返回 VALIDATION 错误，事件不入库）：
//   - type 必须是 view / purchase / rating / wishlist 之一
//   - rating 仅在 type == rating 时允许出现，且取值 1-5
//   - product_id 必须存在于目录中
//   - user_id 非空
//
// 通过校验后分配单调递增 ID；Timestamp 为零值时由 Clock 赋值。
func (s *Store) Append(ctx context.Context, ev *core.Interaction) error {
	if ev == nil {
		return core.NewValidationError(core.ModuleInteraction, "event", "nil event")
	}
	if ev.UserID == "" {
		return core.NewValidationError(core.ModuleInteraction, "user_id", "must not be empty")
	}
	if !core.ValidInteractionType(ev.Type) {
		return core.NewValidationError(core.ModuleInteraction, "type", "unknown interaction type: "+string(ev.Type))
	}
	if ev.Type == core.InteractionRating {
		if ev.Rating < 1 || ev.Rating > 5 {
			return core.NewValidationError(core.ModuleInteraction, "rating", "must be between 1 and 5")
		}
	} else if ev.Rating != 0 {
		return core.NewValidationError(core.ModuleInteraction, "rating", "only valid for type=rating")
	}
	if s.catalog == nil || !s.catalog.Exists(ctx, ev.ProductID) {
		return core.NewValidationError(core.ModuleInteraction, "product_id", "unknown product: "+ev.ProductID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *ev
	stored.ID = s.nextID
	s.nextID++
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.clock.Now()
	}

	idx := len(s.events)
	s.events = append(s.events, stored)
	s.byUser[stored.UserID] = append(s.byUser[stored.UserID], idx)

	// 回填分配结果，调用方可读取 ID/Timestamp
	ev.ID = stored.ID
	ev.Timestamp = stored.Timestamp
	return nil
}

// ByUser 返回某用户的行为事件，最近优先，长度不超过 limit。
// limit <= 0 时使用 DefaultByUserLimit。
func (s *Store) ByUser(userID string, limit int) []core.Interaction {
	if limit <= 0 {
		limit = DefaultByUserLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idxs := s.byUser[userID]
	n := len(idxs)
	if n > limit {
		n = limit
	}
	out := make([]core.Interaction, 0, n)
	// 追加序即时间序，倒序返回
	for i := len(idxs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[idxs[i]])
	}
	return out
}

// All 返回日志的一致性副本（按追加序），供模型重建使用。
func (s *Store) All() []core.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Interaction, len(s.events))
	copy(out, s.events)
	return out
}

// Len 返回事件总数。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// AggregateByProduct 返回每个商品的行为聚合（各类型计数 + 评分列表），
// 供流行度排序使用。
func (s *Store) AggregateByProduct() map[string]*core.ProductStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*core.ProductStats)
	for i := range s.events {
		ev := &s.events[i]
		stats, ok := out[ev.ProductID]
		if !ok {
			stats = &core.ProductStats{}
			out[ev.ProductID] = stats
		}
		switch ev.Type {
		case core.InteractionView:
			stats.Views++
		case core.InteractionPurchase:
			stats.Purchases++
		case core.InteractionWishlist:
			stats.Wishlists++
		case core.InteractionRating:
			stats.Ratings = append(stats.Ratings, ev.Rating)
		}
	}
	return out
}
