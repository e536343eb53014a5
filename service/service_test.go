package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/shoprec/catalog"
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

func testProducts() []*core.Product {
	return []*core.Product{
		{ID: "p1", Title: "Wireless Bluetooth Headphones", Category: "electronics", Price: 120},
		{ID: "p2", Title: "Wireless Bluetooth Speaker", Category: "electronics", Price: 80},
		{ID: "p3", Title: "Espresso Coffee Machine", Category: "kitchen", Price: 650},
		{ID: "p4", Title: "Coffee Grinder", Category: "kitchen", Price: 60},
	}
}

// newTestService 组装服务并摄入固定行为集：
//
//	u1: view p1, purchase p2
//	u2: view p1, view p2, rating p3=5
//
// 流行度（1/3/1）：p2=4, p1=2, p3=1, p4=0。
func newTestService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
		cfg.Engine.Rebuild.Threshold = 0 // 测试默认关闭自动重建
	}
	svc, err := New(catalog.NewMemory(testProducts()...), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(svc.Stop)

	ctx := context.Background()
	seed := []core.Interaction{
		{UserID: "u1", ProductID: "p1", Type: core.InteractionView},
		{UserID: "u1", ProductID: "p2", Type: core.InteractionPurchase},
		{UserID: "u2", ProductID: "p1", Type: core.InteractionView},
		{UserID: "u2", ProductID: "p2", Type: core.InteractionView},
		{UserID: "u2", ProductID: "p3", Type: core.InteractionRating, Rating: 5},
	}
	for i := range seed {
		if err := svc.Ingest(ctx, &seed[i]); err != nil {
			t.Fatalf("Ingest(%d) error = %v", i, err)
		}
	}
	if err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	return svc
}

func productIDs(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ProductID)
	}
	return out
}

func TestIngest_RejectsInvalidEvent(t *testing.T) {
	svc := newTestService(t, nil)
	before := svc.Log().Len()

	err := svc.Ingest(context.Background(), &core.Interaction{
		UserID: "u1", ProductID: "p1", Type: "click",
	})
	if !core.IsValidation(err) {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
	if svc.Log().Len() != before {
		t.Error("rejected event must not be appended")
	}
}

func TestIngest_DoesNotAffectPublishedSnapshot(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	before, err := svc.Popular(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	// 摄入大量新事件但不重建
	for i := 0; i < 20; i++ {
		ev := core.Interaction{UserID: "u9", ProductID: "p4", Type: core.InteractionPurchase}
		if err := svc.Ingest(ctx, &ev); err != nil {
			t.Fatal(err)
		}
	}
	after, err := svc.Popular(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("results changed without rebuild: %v vs %v", before, after)
	}
}

func TestRecommend_ColdUserFallsBackToPopularity(t *testing.T) {
	svc := newTestService(t, nil)
	recs, err := svc.RecommendForUser(context.Background(), "newbie", "hybrid", 4)
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}

	want := []string{"p2", "p1", "p3", "p4"}
	if got := productIDs(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	for _, r := range recs {
		if r.Fallback != "popular" {
			t.Errorf("%s: fallback = %q, want popular", r.ProductID, r.Fallback)
		}
	}
}

func TestRecommend_CollaborativeColdUserAlsoFallsBack(t *testing.T) {
	svc := newTestService(t, nil)
	for _, alg := range []string{"collaborative", "content"} {
		recs, err := svc.RecommendForUser(context.Background(), "newbie", alg, 3)
		if err != nil {
			t.Fatalf("%s: error = %v", alg, err)
		}
		if len(recs) == 0 {
			t.Fatalf("%s: empty result for cold user", alg)
		}
		if recs[0].Fallback != "popular" {
			t.Errorf("%s: fallback = %q, want popular", alg, recs[0].Fallback)
		}
	}
}

func TestRecommend_ExcludesInteracted(t *testing.T) {
	svc := newTestService(t, nil)
	recs, err := svc.RecommendForUser(context.Background(), "u1", "hybrid", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if r.ProductID == "p1" || r.ProductID == "p2" {
			t.Errorf("interacted product %s surfaced", r.ProductID)
		}
	}
}

func TestRecommend_UnknownAlgorithm(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.RecommendForUser(context.Background(), "u1", "magic", 5); !core.IsValidation(err) {
		t.Errorf("err = %v, want VALIDATION", err)
	}
	if _, err := svc.RecommendForUser(context.Background(), "", "hybrid", 5); !core.IsValidation(err) {
		t.Errorf("empty user: err = %v, want VALIDATION", err)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	svc := newTestService(t, nil) // 无缓存，两次都走完整打分
	ctx := context.Background()
	a, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same snapshot, different results:\n%v\n%v", a, b)
	}
}

func TestRecommend_CacheHit(t *testing.T) {
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	svc := newTestService(t, nil, WithCache(ms))
	ctx := context.Background()

	a, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("cached result differs: %v vs %v", a, b)
	}

	m := svc.Metrics()
	if m.CacheHits != 1 || m.CacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 1/1", m.CacheHits, m.CacheMisses)
	}

	// 重建后版本号变化，缓存键失效
	if err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5); err != nil {
		t.Fatal(err)
	}
	if m := svc.Metrics(); m.CacheMisses != 2 {
		t.Errorf("cache misses after rebuild = %d, want 2", m.CacheMisses)
	}
}

func TestSimilarTo(t *testing.T) {
	svc := newTestService(t, nil)
	recs, err := svc.SimilarTo(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("SimilarTo() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	// 同为 wireless bluetooth 的 p2 最相似；自身绝不出现
	if recs[0].ProductID != "p2" {
		t.Errorf("top = %s, want p2", recs[0].ProductID)
	}
	for _, r := range recs {
		if r.ProductID == "p1" {
			t.Error("product itself surfaced in similar results")
		}
	}
}

func TestSimilarTo_UnknownProduct(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.SimilarTo(context.Background(), "ghost", 3); !core.IsNotFound(err) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSimilarTo_NoTextFallsBackToPopularity(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Rebuild.Threshold = 0
	products := append(testProducts(), &core.Product{ID: "p5", Title: "x"})
	svc, err := New(catalog.NewMemory(products...), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	ctx := context.Background()
	ev := core.Interaction{UserID: "u1", ProductID: "p2", Type: core.InteractionPurchase}
	if err := svc.Ingest(ctx, &ev); err != nil {
		t.Fatal(err)
	}

	// p5 无可用词项 → 榜单兜底，排除其自身
	recs, err := svc.SimilarTo(ctx, "p5", 10)
	if err != nil {
		t.Fatalf("SimilarTo() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("empty fallback result")
	}
	for _, r := range recs {
		if r.ProductID == "p5" {
			t.Error("product itself surfaced")
		}
		if r.Fallback != "popular" {
			t.Errorf("%s: fallback = %q, want popular", r.ProductID, r.Fallback)
		}
	}
}

func TestPopular_NeverExcludesInteracted(t *testing.T) {
	svc := newTestService(t, nil)
	recs, err := svc.Popular(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p2", "p1", "p3", "p4"}
	if got := productIDs(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

// flakyCatalog 在 fail 置位后 All 返回错误，用于模拟重建失败。
type flakyCatalog struct {
	*catalog.Memory
	fail bool
}

func (f *flakyCatalog) All(ctx context.Context) ([]*core.Product, error) {
	if f.fail {
		return nil, errors.New("catalog unavailable")
	}
	return f.Memory.All(ctx)
}

func TestRebuildFailure_KeepsPreviousSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Rebuild.Threshold = 0
	fc := &flakyCatalog{Memory: catalog.NewMemory(testProducts()...)}
	svc, err := New(fc, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	ctx := context.Background()
	ev := core.Interaction{UserID: "u1", ProductID: "p2", Type: core.InteractionPurchase}
	if err := svc.Ingest(ctx, &ev); err != nil {
		t.Fatal(err)
	}
	if err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	versionBefore := svc.Metrics().SnapshotVersion

	fc.fail = true
	if err := svc.Rebuild(ctx); err == nil {
		t.Fatal("expected rebuild error")
	}

	m := svc.Metrics()
	if m.SnapshotVersion != versionBefore {
		t.Errorf("version = %d, want unchanged %d", m.SnapshotVersion, versionBefore)
	}
	if m.RebuildFailures != 1 {
		t.Errorf("rebuild failures = %d, want 1", m.RebuildFailures)
	}
	// 旧快照继续服务
	if _, err := svc.Popular(ctx, 3); err != nil {
		t.Errorf("Popular() after failed rebuild: %v", err)
	}
}

func TestRebuild_EmptyCatalogFails(t *testing.T) {
	svc, err := New(catalog.NewMemory(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	if err := svc.Rebuild(context.Background()); !core.IsModelBuild(err) {
		t.Errorf("err = %v, want MODEL_BUILD", err)
	}
}

func TestIngest_ThresholdTriggersAsyncRebuild(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Rebuild.Threshold = 3
	cfg.Engine.Rebuild.Interval = 0
	svc, err := New(catalog.NewMemory(testProducts()...), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	ctx := context.Background()
	if err := svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		ev := core.Interaction{UserID: "u1", ProductID: "p1", Type: core.InteractionView}
		if err := svc.Ingest(ctx, &ev); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m := svc.Metrics(); m.SnapshotVersion >= 2 && m.State == "fresh" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("async rebuild did not complete: %+v", svc.Metrics())
}

func TestFilters_RemoveByRule(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Rebuild.Threshold = 0
	cfg.Filters = []string{`product.price > 500.0`}
	svc, err := New(catalog.NewMemory(testProducts()...), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	recs, err := svc.Popular(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if r.ProductID == "p3" { // price 650
			t.Error("filtered product p3 surfaced")
		}
	}
}

func TestFilters_InvalidExpressionFailsAtStartup(t *testing.T) {
	cfg := config.Default()
	cfg.Filters = []string{`product.price >`}
	if _, err := New(catalog.NewMemory(testProducts()...), cfg); err == nil {
		t.Fatal("expected compile error for invalid rule")
	}
}

func TestDiversity_LimitsPerCategory(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Rebuild.Threshold = 0
	cfg.Diversity.MaxPerCategory = 1
	svc, err := New(catalog.NewMemory(testProducts()...), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	recs, err := svc.Popular(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{"electronics": 0, "kitchen": 0}
	byID := map[string]string{"p1": "electronics", "p2": "electronics", "p3": "kitchen", "p4": "kitchen"}
	for _, r := range recs {
		seen[byID[r.ProductID]]++
	}
	if seen["electronics"] > 1 || seen["kitchen"] > 1 {
		t.Errorf("diversity violated: %v", seen)
	}
}

// stubProfiles 固定返回对 kitchen 的强偏好。
type stubProfiles struct{}

func (stubProfiles) CategoryPreferences(context.Context, string) (map[string]float64, error) {
	return map[string]float64{"kitchen": 5.0}, nil
}
func (stubProfiles) Close() error { return nil }

func TestColdStart_ProfileBoostReordersFallback(t *testing.T) {
	svc := newTestService(t, nil, WithProfileLoader(stubProfiles{}))
	recs, err := svc.RecommendForUser(context.Background(), "newbie", "hybrid", 4)
	if err != nil {
		t.Fatal(err)
	}
	// 无画像时 p2(4) 居首；kitchen 偏好把 p3(1×6=6) 提到首位
	if len(recs) == 0 || recs[0].ProductID != "p3" {
		t.Errorf("ids = %v, want p3 first after boost", productIDs(recs))
	}
}

func TestExporter_PopularityExportedOnRebuild(t *testing.T) {
	ms := store.NewMemoryStore()
	t.Cleanup(func() { ms.Close() })
	svc := newTestService(t, nil, WithExporter(ms))
	if err := svc.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	members, err := ms.ZRange(context.Background(), "shoprec:popularity", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) == 0 || members[0] != "p2" {
		t.Errorf("exported top = %v, want p2 first", members)
	}
	score, err := ms.ZScore(context.Background(), "shoprec:popularity", "p2")
	if err != nil || score != 4 {
		t.Errorf("p2 score = %v (%v), want 4", score, err)
	}
}

func TestMetrics(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	if _, err := svc.RecommendForUser(ctx, "u1", "hybrid", 5); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecommendForUser(ctx, "newbie", "collaborative", 5); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SimilarTo(ctx, "p1", 3); err != nil {
		t.Fatal(err)
	}

	m := svc.Metrics()
	if m.State != "fresh" {
		t.Errorf("state = %q, want fresh", m.State)
	}
	if m.Requests["hybrid"] != 1 || m.Requests["collaborative"] != 1 {
		t.Errorf("requests = %v", m.Requests)
	}
	if m.SimilarRequests != 1 {
		t.Errorf("similar requests = %d, want 1", m.SimilarRequests)
	}
	if m.Fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", m.Fallbacks)
	}
	if m.NumEvents != 5 || m.NumProducts != 4 || m.NumUsers != 2 {
		t.Errorf("shape = events %d users %d products %d", m.NumEvents, m.NumUsers, m.NumProducts)
	}
	if m.VocabularySize == 0 {
		t.Error("vocabulary size = 0")
	}
	if m.Sparsity <= 0 || m.Sparsity >= 1 {
		t.Errorf("sparsity = %v, want in (0,1)", m.Sparsity)
	}
}
