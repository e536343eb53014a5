package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Metrics 是服务的运行时指标快照（一次性读数，非流式）。
type Metrics struct {
	State            string           `json:"state"`
	SnapshotVersion  int64            `json:"snapshot_version"`
	LastRebuildAt    time.Time        `json:"last_rebuild_at"`
	LastRebuildTook  time.Duration    `json:"last_rebuild_took"`
	RebuildFailures  int64            `json:"rebuild_failures"`
	EventsSinceBuild int64            `json:"events_since_build"`
	NumEvents        int              `json:"num_events"`
	NumUsers         int              `json:"num_users"`
	NumProducts      int              `json:"num_products"`
	MatrixEntries    int              `json:"matrix_entries"`
	Sparsity         float64          `json:"sparsity"`
	VocabularySize   int              `json:"vocabulary_size"`
	Requests         map[string]int64 `json:"requests"` // 按算法维度的请求计数
	SimilarRequests  int64            `json:"similar_requests"`
	Fallbacks        int64            `json:"fallbacks"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
}

// counters 是服务内部的并发安全计数器。
type counters struct {
	requests        map[core.Algorithm]*atomic.Int64
	similar         atomic.Int64
	fallbacks       atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	rebuildFailures atomic.Int64

	mu              sync.Mutex
	lastRebuildAt   time.Time
	lastRebuildTook time.Duration
}

func (c *counters) init() {
	c.requests = map[core.Algorithm]*atomic.Int64{
		core.AlgorithmHybrid:        {},
		core.AlgorithmCollaborative: {},
		core.AlgorithmContent:       {},
		core.AlgorithmPopular:       {},
	}
}

func (c *counters) recordRebuild(at time.Time, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRebuildAt = at
	c.lastRebuildTook = took
}

// Metrics 汇总当前指标。快照相关字段在从未构建时为零值。
func (s *Service) Metrics() Metrics {
	m := Metrics{
		State:            state(s.state.Load()).String(),
		EventsSinceBuild: s.staleSince.Load(),
		NumEvents:        s.log.Len(),
		SimilarRequests:  s.counters.similar.Load(),
		Fallbacks:        s.counters.fallbacks.Load(),
		CacheHits:        s.counters.cacheHits.Load(),
		CacheMisses:      s.counters.cacheMisses.Load(),
		RebuildFailures:  s.counters.rebuildFailures.Load(),
		Requests:         make(map[string]int64, len(s.counters.requests)),
	}
	for alg, n := range s.counters.requests {
		m.Requests[string(alg)] = n.Load()
	}

	s.counters.mu.Lock()
	m.LastRebuildAt = s.counters.lastRebuildAt
	m.LastRebuildTook = s.counters.lastRebuildTook
	s.counters.mu.Unlock()

	if snap := s.snapshot.Load(); snap != nil {
		m.SnapshotVersion = snap.Version
		m.NumProducts = snap.NumProducts
		m.NumUsers = snap.Matrix.NumUsers()
		m.MatrixEntries = snap.Matrix.NumEntries()
		m.Sparsity = snap.Matrix.Sparsity(snap.NumProducts)
		m.VocabularySize = snap.Index.VocabularySize()
	}
	return m
}

func labelPopular() utils.Label {
	return utils.Label{Value: "popular", Source: "service"}
}

func catalogLabel(value string) utils.Label {
	return utils.Label{Value: value, Source: "catalog"}
}
