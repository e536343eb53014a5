package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.Neighbors != 50 {
		t.Errorf("neighbors = %d, want 50", cfg.Engine.Neighbors)
	}
	if cfg.Engine.Blend.Collaborative != 0.6 || cfg.Engine.Blend.Content != 0.4 {
		t.Errorf("blend = %+v, want 0.6/0.4", cfg.Engine.Blend)
	}
	if cfg.Engine.Popularity.Purchase != 3 {
		t.Errorf("popularity.purchase = %v, want 3", cfg.Engine.Popularity.Purchase)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoprec.yaml")
	body := `
engine:
  neighbors: 10
  rebuild:
    threshold: 5
    interval: 30s
filters:
  - 'product.price > 500.0'
diversity:
  max_per_category: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Neighbors != 10 {
		t.Errorf("neighbors = %d, want 10", cfg.Engine.Neighbors)
	}
	if cfg.Engine.Rebuild.Threshold != 5 || cfg.Engine.Rebuild.Interval != 30*time.Second {
		t.Errorf("rebuild = %+v", cfg.Engine.Rebuild)
	}
	// 未覆盖字段保持默认
	if cfg.Engine.Blend.Collaborative != 0.6 {
		t.Errorf("blend.collaborative = %v, want default 0.6", cfg.Engine.Blend.Collaborative)
	}
	if cfg.Engine.CacheTTL != 60 {
		t.Errorf("cache_ttl = %d, want default 60", cfg.Engine.CacheTTL)
	}
	if len(cfg.Filters) != 1 || cfg.Filters[0] != "product.price > 500.0" {
		t.Errorf("filters = %v", cfg.Filters)
	}
	if cfg.Diversity.MaxPerCategory != 3 {
		t.Errorf("diversity = %+v", cfg.Diversity)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/shoprec.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Engine.Neighbors = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative neighbors must fail validation")
	}
}
