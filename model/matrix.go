// Package model 实现由行为日志与商品目录派生的只读模型：
// 用户-物品矩阵、内容索引（TF-IDF）、流行度榜单，以及把三者打包的 Snapshot。
//
// 派生模型是 (行为日志快照, 目录快照) 的纯函数：相同输入必然产出相同结果
// （缓存与测试依赖这一确定性）。模型一经发布即不可变，重建时整体替换、
// 绝不原地修补。
package model

import (
	"sort"

	"github.com/rushteam/shoprec/core"
)

// UserItemMatrix 是稀疏的用户-物品权重矩阵：
// (user, item) → 该用户对该物品全部行为的权重之和。
// 权重函数见 core.InteractionWeight；重复行为累加、不封顶。
type UserItemMatrix struct {
	rows map[string]map[string]float64
}

// BuildUserItemMatrix 从行为日志全量构建矩阵，复杂度 O(事件数)。
// 没有增量更新：重建永远从头来，保证与日志严格一致。
func BuildUserItemMatrix(events []core.Interaction) *UserItemMatrix {
	rows := make(map[string]map[string]float64)
	for i := range events {
		ev := &events[i]
		w := core.InteractionWeight(ev.Type, ev.Rating)
		if w == 0 {
			continue
		}
		row, ok := rows[ev.UserID]
		if !ok {
			row = make(map[string]float64)
			rows[ev.UserID] = row
		}
		row[ev.ProductID] += w
	}
	return &UserItemMatrix{rows: rows}
}

// Row 返回某用户的行为向量；用户无行为时返回 nil（冷启动信号的依据）。
// 返回值是内部数据，调用方只读。
func (m *UserItemMatrix) Row(userID string) map[string]float64 {
	return m.rows[userID]
}

// Users 返回全部用户 ID，升序排序以保证遍历确定性。
func (m *UserItemMatrix) Users() []string {
	out := make([]string, 0, len(m.rows))
	for u := range m.rows {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// HasInteracted 判断用户是否与某物品发生过行为。
func (m *UserItemMatrix) HasInteracted(userID, productID string) bool {
	row, ok := m.rows[userID]
	if !ok {
		return false
	}
	_, ok = row[productID]
	return ok
}

// NumUsers 返回矩阵的行数。
func (m *UserItemMatrix) NumUsers() int { return len(m.rows) }

// NumEntries 返回非零元个数。
func (m *UserItemMatrix) NumEntries() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// Sparsity 返回矩阵稀疏度（0-1），numProducts 为目录商品数。
func (m *UserItemMatrix) Sparsity(numProducts int) float64 {
	total := len(m.rows) * numProducts
	if total == 0 {
		return 0
	}
	return 1 - float64(m.NumEntries())/float64(total)
}
