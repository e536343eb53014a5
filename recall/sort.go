package recall

import (
	"sort"

	"github.com/rushteam/shoprec/core"
)

// sortByScoreThenID 是全部策略共用的排序规则：
// 分数降序，分数相同按商品 ID 升序。
// 固定的 tie-break 保证相同输入产出相同排序（缓存与测试依赖）。
func sortByScoreThenID(items []*core.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}
