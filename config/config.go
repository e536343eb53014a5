// Package config 提供引擎的 YAML 配置加载（支持部分覆盖：
// 未出现的字段保持默认值）。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是推荐引擎的完整配置。
type Config struct {
	Engine    Engine    `yaml:"engine"`
	Redis     Redis     `yaml:"redis"`
	Feast     Feast     `yaml:"feast"`
	Filters   []string  `yaml:"filters"` // CEL 排除规则，命中即移除
	Diversity Diversity `yaml:"diversity"`
}

// Engine 是打分与生命周期相关的配置。
type Engine struct {
	// Neighbors 协同过滤的相似用户数
	Neighbors int `yaml:"neighbors"`

	// Blend 混合融合权重
	Blend Blend `yaml:"blend"`

	// Popularity 流行度打分的行为权重
	Popularity Popularity `yaml:"popularity"`

	// Rebuild 快照重建策略
	Rebuild Rebuild `yaml:"rebuild"`

	// CacheTTL 结果缓存存活秒数（快照切换时逻辑上整体失效）
	CacheTTL int `yaml:"cache_ttl"`
}

type Blend struct {
	Collaborative float64 `yaml:"collaborative"`
	Content       float64 `yaml:"content"`
}

type Popularity struct {
	View     float64 `yaml:"view"`
	Purchase float64 `yaml:"purchase"`
	Rating   float64 `yaml:"rating"`
}

type Rebuild struct {
	// Threshold 自上次构建起累计多少条新事件后标记过期
	Threshold int `yaml:"threshold"`

	// Interval 定时重建周期，0 表示不启用定时器
	Interval time.Duration `yaml:"interval"`
}

// Redis 可选：配置后结果缓存与榜单导出走 Redis。
type Redis struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// Feast 可选：配置后冷启动用户走 Feature Store 类目偏好。
type Feast struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Project  string   `yaml:"project"`
	Features []string `yaml:"features"`
}

type Diversity struct {
	// MaxPerCategory 每个类目最多保留的候选数，0 表示不启用
	MaxPerCategory int `yaml:"max_per_category"`
}

// Default 返回内置默认配置。
func Default() *Config {
	return &Config{
		Engine: Engine{
			Neighbors: 50,
			Blend: Blend{
				Collaborative: 0.6,
				Content:       0.4,
			},
			Popularity: Popularity{View: 1, Purchase: 3, Rating: 1},
			Rebuild: Rebuild{
				Threshold: 100,
				Interval:  5 * time.Minute,
			},
			CacheTTL: 60,
		},
	}
}

// Load 从 YAML 文件加载配置，未出现的字段保持 Default 值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置合法性。
func (c *Config) Validate() error {
	if c.Engine.Neighbors < 0 {
		return fmt.Errorf("config: engine.neighbors must be >= 0")
	}
	if c.Engine.Blend.Collaborative < 0 || c.Engine.Blend.Content < 0 {
		return fmt.Errorf("config: engine.blend weights must be >= 0")
	}
	if c.Engine.Rebuild.Threshold < 0 {
		return fmt.Errorf("config: engine.rebuild.threshold must be >= 0")
	}
	return nil
}
