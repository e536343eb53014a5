// Package service 是引擎的编排层：对外暴露 摄入 / 推荐 / 相似 / 榜单 / 指标，
// 对内管理快照生命周期（新鲜 → 过期 → 重建中 → 新鲜）。
//
// 生命周期约定：
//   - 摄入只写日志，绝不触碰已发布快照（读到的结果在下次重建前保持不变）
//   - 自上次构建累计的新事件达到阈值后标记过期，并异步触发重建
//   - 重建在旁侧完整构建新快照，成功后原子切换；失败记日志、保留旧快照
//   - 同一时刻至多一个重建在跑（single-flight）
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/feature"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/interaction"
	"github.com/rushteam/shoprec/model"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

// DefaultK 是推荐条数的默认值。
const DefaultK = 10

// 快照生命周期状态。
type state int32

const (
	stateFresh      state = iota // 快照与日志一致（阈值口径内）
	stateStale                   // 新事件达到阈值，等待重建
	stateRebuilding              // 重建进行中，读请求仍走旧快照
)

func (s state) String() string {
	switch s {
	case stateStale:
		return "stale"
	case stateRebuilding:
		return "rebuilding"
	}
	return "fresh"
}

// Recommendation 是对外返回的推荐条目。
type Recommendation struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`             // 产生该条目的策略
	Fallback  string  `json:"fallback,omitempty"` // 非空表示走了降级链
}

// Service 是推荐服务的聚合根。
type Service struct {
	catalog core.Catalog
	log     *interaction.Store
	cfg     *config.Config
	logger  *zap.Logger
	clock   core.Clock

	cache    core.Store            // 结果缓存（可选）
	exporter core.KeyValueStore    // 榜单导出（可选）
	profiles feature.ProfileLoader // 冷启动画像（可选）

	collab  *recall.Collaborative
	content *recall.Content
	popular *recall.Popular
	hybrid  *recall.Hybrid

	filterNode *filter.Node
	diversity  *rerank.Diversity

	snapshot   atomic.Pointer[model.Snapshot]
	version    atomic.Int64
	staleSince atomic.Int64 // 自上次成功构建以来的新事件数
	state      atomic.Int32

	rebuildMu sync.Mutex // single-flight

	counters counters

	stopOnce sync.Once
	stop     chan struct{}
}

// Option 配置 Service 的可选依赖。
type Option func(*Service)

// WithLogger 注入日志器，默认 zap.NewNop()。
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCache 注入结果缓存。缓存 key 含快照版本号，切换后旧键自然失效。
func WithCache(st core.Store) Option {
	return func(s *Service) { s.cache = st }
}

// WithExporter 注入榜单导出存储：每次重建成功后把流行度榜单写入有序集合，
// 供外部消费方（首页、运营后台）直接读取。
func WithExporter(kv core.KeyValueStore) Option {
	return func(s *Service) { s.exporter = kv }
}

// WithProfileLoader 注入冷启动画像源：全新用户降级到榜单时按类目偏好微调排序。
func WithProfileLoader(p feature.ProfileLoader) Option {
	return func(s *Service) { s.profiles = p }
}

// WithClock 注入时钟（测试用）。
func WithClock(c core.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New 组装推荐服务。cfg 为空时使用 config.Default()；
// 配置中的 CEL 规则在此编译，非法表达式启动期即失败。
func New(catalog core.Catalog, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		catalog: catalog,
		cfg:     cfg,
		logger:  zap.NewNop(),
		clock:   core.SystemClock{},
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = interaction.NewStore(catalog, s.clock)

	s.collab = &recall.Collaborative{Neighbors: cfg.Engine.Neighbors}
	s.content = &recall.Content{}
	s.popular = &recall.Popular{}
	s.hybrid = &recall.Hybrid{
		Collaborative: s.collab,
		Content:       s.content,
		Popular:       s.popular,
		CollabWeight:  cfg.Engine.Blend.Collaborative,
		ContentWeight: cfg.Engine.Blend.Content,
	}

	filters := make([]filter.Filter, 0, len(cfg.Filters))
	for _, expr := range cfg.Filters {
		f, err := filter.NewRuleFilter(expr, catalog)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	s.filterNode = &filter.Node{Filters: filters}
	s.diversity = &rerank.Diversity{MaxPerCategory: cfg.Diversity.MaxPerCategory}

	s.counters.init()
	return s, nil
}

// Log 暴露底层行为日志（只读用途：查询用户近期行为等）。
func (s *Service) Log() *interaction.Store { return s.log }

// Ingest 校验并摄入一条行为事件。
// 校验失败返回 VALIDATION 错误且事件不入库；成功后累计过期计数，
// 达到阈值时标记过期并异步触发重建。
func (s *Service) Ingest(ctx context.Context, ev *core.Interaction) error {
	if err := s.log.Append(ctx, ev); err != nil {
		return err
	}

	n := s.staleSince.Add(1)
	threshold := int64(s.cfg.Engine.Rebuild.Threshold)
	if threshold > 0 && n >= threshold &&
		s.state.CompareAndSwap(int32(stateFresh), int32(stateStale)) {
		s.logger.Info("snapshot marked stale",
			zap.Int64("events_since_build", n),
			zap.Int64("threshold", threshold))
		go s.rebuildAsync()
	}
	return nil
}

// rebuildAsync 尝试触发一次后台重建；已有重建在跑时直接放弃（single-flight）。
func (s *Service) rebuildAsync() {
	if !s.rebuildMu.TryLock() {
		return
	}
	defer s.rebuildMu.Unlock()
	// 失败已在 rebuildLocked 内记日志
	_ = s.rebuildLocked(context.Background())
}

// Rebuild 同步重建快照：成功则原子切换并返回 nil；
// 失败保留旧快照（读请求不受影响）并返回 MODEL_BUILD 错误。
func (s *Service) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *Service) rebuildLocked(ctx context.Context) error {
	s.state.Store(int32(stateRebuilding))
	start := s.clock.Now()

	// 冻结输入：日志副本 + 目录副本 + 行为聚合
	events := s.log.All()
	products, err := s.catalog.All(ctx)
	if err != nil {
		s.failRebuild(err)
		return err
	}
	stats := s.log.AggregateByProduct()

	version := s.version.Add(1)
	snap, err := model.BuildSnapshot(ctx, version, start, model.BuildInput{
		Products: products,
		Events:   events,
		Stats:    stats,
		Weights: model.PopularityWeights{
			View:     s.cfg.Engine.Popularity.View,
			Purchase: s.cfg.Engine.Popularity.Purchase,
			Rating:   s.cfg.Engine.Popularity.Rating,
		},
	})
	if err != nil {
		s.failRebuild(err)
		return err
	}

	took := s.clock.Now().Sub(start)
	s.snapshot.Store(snap)
	s.staleSince.Store(0)
	s.state.Store(int32(stateFresh))
	s.counters.recordRebuild(snap.BuiltAt, took)

	s.logger.Info("snapshot rebuilt",
		zap.Int64("version", snap.Version),
		zap.Int("events", snap.NumEvents),
		zap.Int("products", snap.NumProducts),
		zap.Duration("took", took))

	s.exportPopularity(ctx, snap)
	return nil
}

// failRebuild 记录失败并恢复状态：有旧快照则回到 stale（数据仍然过期），
// 从未成功构建过则回到 fresh 等待下一次触发。
func (s *Service) failRebuild(err error) {
	if s.snapshot.Load() != nil {
		s.state.Store(int32(stateStale))
	} else {
		s.state.Store(int32(stateFresh))
	}
	s.counters.rebuildFailures.Add(1)
	s.logger.Error("snapshot rebuild failed, keeping previous snapshot", zap.Error(err))
}

// exportPopularity 把榜单写入外部有序集合，尽力而为：失败只记日志。
func (s *Service) exportPopularity(ctx context.Context, snap *model.Snapshot) {
	if s.exporter == nil {
		return
	}
	key := "shoprec:popularity"
	for _, e := range snap.Popularity.TopK(0) {
		if err := s.exporter.ZAdd(ctx, key, e.Score, e.ProductID); err != nil {
			s.logger.Warn("popularity export failed",
				zap.String("store", s.exporter.Name()),
				zap.String("product_id", e.ProductID),
				zap.Error(err))
			return
		}
	}
}

// currentSnapshot 返回已发布快照；从未构建过时先做一次同步构建。
func (s *Service) currentSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap, nil
	}
	if err := s.Rebuild(ctx); err != nil {
		return nil, err
	}
	return s.snapshot.Load(), nil
}

// RecommendForUser 为用户返回 k 条推荐。
// algorithm 支持 hybrid（默认）/ collaborative / content / popular；
// 冷启动信号（INSUFFICIENT_DATA）一律在此降级到榜单，绝不外泄。
func (s *Service) RecommendForUser(ctx context.Context, userID, algorithm string, k int) ([]Recommendation, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleService, "user_id", "must not be empty")
	}
	alg, err := core.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultK
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("rec:v%d:%s:%s:%d", snap.Version, alg, userID, k)
	if recs, ok := s.cacheGet(ctx, cacheKey); ok {
		s.counters.requests[alg].Add(1)
		return recs, nil
	}

	// 召回取全量候选分布，截断交给 TopN
	rctx := &core.RecommendContext{UserID: userID, K: 0}
	items, err := s.sourceFor(alg).Recall(ctx, rctx, snap)
	fellBack := false
	if core.IsInsufficientData(err) {
		items, err = s.popular.Recall(ctx, rctx, snap)
		fellBack = true
	}
	if err != nil {
		return nil, err
	}

	s.annotateCategory(ctx, items)
	if fellBack {
		for _, it := range items {
			it.PutLabel("fallback", labelPopular())
		}
		s.counters.fallbacks.Add(1)
		items = s.boostByProfile(ctx, userID, items)
	}

	items, err = s.postProcess(ctx, rctx, items, k)
	if err != nil {
		return nil, err
	}

	s.counters.requests[alg].Add(1)
	recs := toRecommendations(items)
	s.cacheSet(ctx, cacheKey, recs)
	return recs, nil
}

// SimilarTo 返回与目标商品最相似的 k 个商品。
// 目标不在目录中返回 NOT_FOUND；在目录但无文本向量时降级到榜单（排除其自身）。
func (s *Service) SimilarTo(ctx context.Context, productID string, k int) ([]Recommendation, error) {
	if productID == "" {
		return nil, core.NewValidationError(core.ModuleService, "product_id", "must not be empty")
	}
	if s.catalog == nil || !s.catalog.Exists(ctx, productID) {
		return nil, core.ErrProductNotFound
	}
	if k <= 0 {
		k = DefaultK
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("sim:v%d:%s:%d", snap.Version, productID, k)
	if recs, ok := s.cacheGet(ctx, cacheKey); ok {
		s.counters.similar.Add(1)
		return recs, nil
	}

	rctx := &core.RecommendContext{ProductID: productID, K: 0}
	items, err := s.content.SimilarTo(ctx, snap, productID, 0)
	fellBack := false
	if core.IsNotFound(err) {
		// 商品存在但目录无可用文本 → 榜单兜底，排除其自身
		all, perr := s.popular.Recall(ctx, rctx, snap)
		if perr != nil {
			return nil, perr
		}
		items = items[:0]
		for _, it := range all {
			if it.ID != productID {
				items = append(items, it)
			}
		}
		fellBack = true
		err = nil
	}
	if err != nil {
		return nil, err
	}

	s.annotateCategory(ctx, items)
	if fellBack {
		for _, it := range items {
			it.PutLabel("fallback", labelPopular())
		}
		s.counters.fallbacks.Add(1)
	}

	items, err = s.postProcess(ctx, rctx, items, k)
	if err != nil {
		return nil, err
	}

	s.counters.similar.Add(1)
	recs := toRecommendations(items)
	s.cacheSet(ctx, cacheKey, recs)
	return recs, nil
}

// Popular 返回流行度榜单前 k 名（不做个性化、不排除任何商品）。
func (s *Service) Popular(ctx context.Context, k int) ([]Recommendation, error) {
	if k <= 0 {
		k = DefaultK
	}
	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{K: 0}
	items, err := s.popular.Recall(ctx, rctx, snap)
	if err != nil {
		return nil, err
	}
	s.annotateCategory(ctx, items)
	items, err = s.postProcess(ctx, rctx, items, k)
	if err != nil {
		return nil, err
	}
	s.counters.requests[core.AlgorithmPopular].Add(1)
	return toRecommendations(items), nil
}

// postProcess 执行 过滤 → 多样性 → TopN 的后处理链。
func (s *Service) postProcess(ctx context.Context, rctx *core.RecommendContext, items []*core.Item, k int) ([]*core.Item, error) {
	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		s.filterNode,
		s.diversity,
		&rerank.TopN{N: k},
	}}
	return p.Run(ctx, rctx, items)
}

// annotateCategory 用目录信息给候选打上类别标签，供多样性节点与结果解释使用。
func (s *Service) annotateCategory(ctx context.Context, items []*core.Item) {
	if s.catalog == nil {
		return
	}
	for _, it := range items {
		p, err := s.catalog.Get(ctx, it.ID)
		if err != nil || p.Category == "" {
			continue
		}
		if _, ok := it.GetLabel("category"); !ok {
			it.PutLabel("category", catalogLabel(p.Category))
		}
	}
}

// boostByProfile 用外部画像微调榜单：score ×= 1 + pref(category)。
// 画像不可用（未配置 / 查询失败 / 空画像）时原样返回。
func (s *Service) boostByProfile(ctx context.Context, userID string, items []*core.Item) []*core.Item {
	if s.profiles == nil {
		return items
	}
	prefs, err := s.profiles.CategoryPreferences(ctx, userID)
	if err != nil {
		s.logger.Warn("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		return items
	}
	if len(prefs) == 0 {
		return items
	}

	boosted := false
	for _, it := range items {
		lbl, ok := it.GetLabel("category")
		if !ok {
			continue
		}
		if w := prefs[lbl.Value]; w > 0 {
			it.Score *= 1 + w
			it.PutLabel("profile_boost", catalogLabel(lbl.Value))
			boosted = true
		}
	}
	if boosted {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			return items[i].ID < items[j].ID
		})
	}
	return items
}

func (s *Service) sourceFor(alg core.Algorithm) recall.Source {
	switch alg {
	case core.AlgorithmCollaborative:
		return s.collab
	case core.AlgorithmContent:
		return s.content
	case core.AlgorithmPopular:
		return s.popular
	}
	return s.hybrid
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]Recommendation, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		s.counters.cacheMisses.Add(1)
		return nil, false
	}
	var recs []Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		s.counters.cacheMisses.Add(1)
		return nil, false
	}
	s.counters.cacheHits.Add(1)
	return recs, true
}

func (s *Service) cacheSet(ctx context.Context, key string, recs []Recommendation) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.Engine.CacheTTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Start 启动定时重建（配置 Interval > 0 时生效）。
func (s *Service) Start() {
	interval := s.cfg.Engine.Rebuild.Interval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.rebuildAsync()
			}
		}
	}()
}

// Stop 停止定时重建并释放可选依赖。
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.profiles != nil {
		if err := s.profiles.Close(); err != nil {
			s.logger.Warn("profile loader close failed", zap.Error(err))
		}
	}
}

func toRecommendations(items []*core.Item) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		rec := Recommendation{ProductID: it.ID, Score: it.Score}
		if lbl, ok := it.GetLabel("recall_source"); ok {
			rec.Source = lbl.Value
		}
		if lbl, ok := it.GetLabel("fallback"); ok {
			rec.Fallback = lbl.Value
		}
		out = append(out, rec)
	}
	return out
}
