// Package config 加载标签价值实验的配置（YAML / JSON / TOML），并据此构建估计器、存储与 gamma 集合。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/tagkit/estimator"
	"github.com/rushteam/tagkit/freq"
	"github.com/rushteam/tagkit/rankdist"
	"github.com/rushteam/tagkit/smoothing"
	"github.com/rushteam/tagkit/store"
)

// Config 是完整配置。
type Config struct {
	Estimator  EstimatorConfig  `yaml:"estimator" json:"estimator" toml:"estimator"`
	Gamma      GammaConfig      `yaml:"gamma" json:"gamma" toml:"gamma"`
	Ranking    RankingConfig    `yaml:"ranking" json:"ranking" toml:"ranking"`
	Store      StoreConfig      `yaml:"store" json:"store" toml:"store"`
	Experiment ExperimentConfig `yaml:"experiment" json:"experiment" toml:"experiment"`
}

// EstimatorConfig 配置平滑估计器。
type EstimatorConfig struct {
	Smoothing smoothing.Kind  `yaml:"smoothing" json:"smoothing" toml:"smoothing"` // JM / Bayes / None
	Lambda    float64         `yaml:"lambda" json:"lambda" toml:"lambda"`
	Cache     bool            `yaml:"cache" json:"cache" toml:"cache"`
	Profile   freq.ProfileCap `yaml:"profile" json:"profile" toml:"profile"`
}

// GammaConfig 用 CEL 表达式选择候选物品 / 标签，空表达式表示全部。
type GammaConfig struct {
	Items string `yaml:"items" json:"items" toml:"items"`
	Tags  string `yaml:"tags" json:"tags" toml:"tags"`
}

// RankingConfig 配置排名比较。
type RankingConfig struct {
	TopK int     `yaml:"top_k" json:"top_k" toml:"top_k"`
	P    float64 `yaml:"p" json:"p" toml:"p"`
}

// StoreConfig 配置排名持久化后端。
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend" toml:"backend"` // memory / redis
	Addr    string `yaml:"addr" json:"addr" toml:"addr"`
	DB      int    `yaml:"db" json:"db" toml:"db"`
	Prefix  string `yaml:"prefix" json:"prefix" toml:"prefix"`
}

// ExperimentConfig 配置批量实验。
type ExperimentConfig struct {
	Parallelism int `yaml:"parallelism" json:"parallelism" toml:"parallelism"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Estimator: EstimatorConfig{
			Smoothing: smoothing.KindJM,
			Lambda:    estimator.DefaultLambda,
			Cache:     true,
		},
		Ranking: RankingConfig{TopK: rankdist.DefaultTopK},
		Store: StoreConfig{
			Backend: "memory",
			Prefix:  store.DefaultPrefix,
		},
		Experiment: ExperimentConfig{Parallelism: 1},
	}
}

// Load 按扩展名加载配置文件（.yaml/.yml、.json、.toml），未出现的字段保留默认值，并做校验。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (supported: .yaml, .yml, .json, .toml)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	e := c.Estimator
	if e.Smoothing.NeedsLambda() {
		if err := smoothing.ValidateLambda(e.Lambda); err != nil {
			return fmt.Errorf("estimator: %w", err)
		}
	}
	if e.Profile.MaxTags < 0 {
		return fmt.Errorf("estimator: profile.max_tags must be >= 0, got %d", e.Profile.MaxTags)
	}
	if e.Profile.Fraction < 0 || e.Profile.Fraction > 1 {
		return fmt.Errorf("estimator: profile.fraction must be in [0, 1], got %v", e.Profile.Fraction)
	}
	if c.Ranking.TopK <= 0 {
		return fmt.Errorf("ranking: top_k must be positive, got %d", c.Ranking.TopK)
	}
	if c.Ranking.P < 0 || c.Ranking.P > 1 {
		return fmt.Errorf("ranking: p must be in [0, 1], got %v", c.Ranking.P)
	}
	if !storeRegistered(c.Store.Backend) {
		return fmt.Errorf("store: unsupported backend %q (supported: %v)", c.Store.Backend, SupportedStores())
	}
	if c.Store.Backend == "redis" && c.Store.Addr == "" {
		return fmt.Errorf("store: redis backend requires addr")
	}
	if c.Experiment.Parallelism < 1 {
		return fmt.Errorf("experiment: parallelism must be >= 1, got %d", c.Experiment.Parallelism)
	}
	return nil
}
