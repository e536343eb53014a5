// Package catalog 提供商品目录的内存实现。
// 目录本身是外部协作者：引擎只读，增删改由外部系统（后台/导入脚本）负责。
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// Memory 是内存实现的 Catalog，用于测试/开发/单机部署。
// 写入（Put）与读取并发安全；模型构建期间目录约定冻结，由调用方保证。
type Memory struct {
	mu       sync.RWMutex
	products map[string]*core.Product
}

func NewMemory(products ...*core.Product) *Memory {
	m := &Memory{products: make(map[string]*core.Product, len(products))}
	for _, p := range products {
		if p != nil && p.ID != "" {
			cp := *p
			m.products[p.ID] = &cp
		}
	}
	return m
}

var _ core.Catalog = (*Memory)(nil)

// Put 写入或覆盖一个商品。
func (m *Memory) Put(p *core.Product) {
	if p == nil || p.ID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

func (m *Memory) Exists(_ context.Context, productID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.products[productID]
	return ok
}

func (m *Memory) Get(_ context.Context, productID string) (*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// All 返回全部商品，按 ID 升序排序以保证遍历确定性。
func (m *Memory) All(_ context.Context) ([]*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len 返回商品数量。
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}
