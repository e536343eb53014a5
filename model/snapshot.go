package model

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
)

// Snapshot 是一次重建产出的不可变派生模型包：
// 用户-物品矩阵 + 内容索引 + 流行度榜单捆绑发布。
//
// 快照发布后只读；服务层通过原子指针切换快照（build-then-swap），
// 读请求永远解引用当前已发布的快照，不会看到半成品。
type Snapshot struct {
	Version     int64 // 单调递增的快照版本，缓存 key 的命名空间
	Matrix      *UserItemMatrix
	Index       *ContentIndex
	Popularity  *PopularityTable
	BuiltAt     time.Time
	NumEvents   int // 构建时的日志长度
	NumProducts int // 构建时的目录大小
}

// BuildInput 是一次重建的冻结输入。
// 调用方先取 日志副本 + 目录副本，再调用 BuildSnapshot，保证纯函数语义。
type BuildInput struct {
	Products []*core.Product
	Events   []core.Interaction
	Stats    map[string]*core.ProductStats
	Weights  PopularityWeights
}

// BuildSnapshot 在旁侧完整构建一个新快照。
//
// 三个派生模型相互独立，并发构建；任一失败（目前只有目录为空这一种）
// 返回 MODEL_BUILD 错误，调用方保留旧快照继续服务。
func BuildSnapshot(ctx context.Context, version int64, now time.Time, in BuildInput) (*Snapshot, error) {
	if len(in.Products) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelBuild, "model: catalog is empty")
	}
	if in.Weights == (PopularityWeights{}) {
		in.Weights = DefaultPopularityWeights()
	}

	snap := &Snapshot{
		Version:     version,
		BuiltAt:     now,
		NumEvents:   len(in.Events),
		NumProducts: len(in.Products),
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Matrix = BuildUserItemMatrix(in.Events)
		return nil
	})
	g.Go(func() error {
		snap.Index = BuildContentIndex(in.Products)
		return nil
	})
	g.Go(func() error {
		snap.Popularity = BuildPopularityTable(in.Products, in.Stats, in.Weights)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeModelBuild, "model: build failed: "+err.Error())
	}
	return snap, nil
}
