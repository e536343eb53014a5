package core

import (
	"context"
	"time"
)

// Product 是商品的只读元数据快照。
// 在一次模型构建周期内视为不可变；目录的增删改由外部系统负责。
type Product struct {
	ID          string
	Title       string
	Description string
	Category    string
	Price       float64
	Rating      float64 // 聚合评分（0 表示暂无）
	ReviewCount int
}

// Catalog 是商品目录的领域接口（只读外部协作者）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（catalog）实现
//   - 模型构建期间目录视为冻结：一次构建内多次读取结果一致
type Catalog interface {
	// Exists 判断商品是否存在（摄入校验用）
	Exists(ctx context.Context, productID string) bool

	// Get 获取单个商品，不存在时返回 ErrProductNotFound
	Get(ctx context.Context, productID string) (*Product, error)

	// All 返回全部商品（模型构建用）
	All(ctx context.Context) ([]*Product, error)
}

// Clock 提供当前时间，摄入时为缺省时间戳赋值。
// 可注入假时钟以保证测试确定性。
type Clock interface {
	Now() time.Time
}

// SystemClock 是基于系统时间的默认 Clock 实现。
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
