// Package config 从 YAML 配置组装整个漏斗引擎：
// 存储、来源注册表、两级模型、后处理规则与引擎限额。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/engine"
	"github.com/venturekit/funnel/filter"
	"github.com/venturekit/funnel/model"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/profile"
	"github.com/venturekit/funnel/source"
	"github.com/venturekit/funnel/store"
)

// Config 是漏斗的顶层配置。
type Config struct {
	Funnel struct {
		OverFetchFactor   float64 `yaml:"over_fetch_factor"`
		SourceTimeoutMs   int     `yaml:"source_timeout_ms"`
		GlobalDeadlineMs  int     `yaml:"global_deadline_ms"`
		MaxInFlight       int     `yaml:"max_in_flight"`
		ShortlistFactor   int     `yaml:"shortlist_factor"`
		ShortlistCeiling  int     `yaml:"shortlist_ceiling"`
		MaxPerSource      int     `yaml:"max_per_source"`
		SimilarityPenalty float64 `yaml:"similarity_penalty"`
		FeedbackBuffer    int     `yaml:"feedback_buffer"`
	} `yaml:"funnel"`

	Store struct {
		Kind string `yaml:"kind"` // memory / redis
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"store"`

	Sources []SourceConfig `yaml:"sources"`

	Models struct {
		Light ModelConfig `yaml:"light"`
		Heavy ModelConfig `yaml:"heavy"`
	} `yaml:"models"`

	PostProcess struct {
		Blocklist    []string `yaml:"blocklist"`
		BlocklistKey string   `yaml:"blocklist_key"`
		UserBlockKey string   `yaml:"user_block_key"`
		Rules        []string `yaml:"rules"`
	} `yaml:"postprocess"`
}

// SourceConfig 是单个候选来源的配置。
type SourceConfig struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`   // agent / content / business_action / resource
	Weight      float64  `yaml:"weight"` // [0,1]
	Description string   `yaml:"description"`
	Kind        string   `yaml:"kind"` // static / rpc / history
	Key         string   `yaml:"key"`  // static: 存储 key
	IDs         []string `yaml:"ids"`  // static: fallback 列表
	Endpoint    string   `yaml:"endpoint"` // rpc
	Actions     []string `yaml:"actions"`  // history: 回放的动作类型
	Confidence  float64  `yaml:"confidence"`
}

// ModelConfig 是单个阶段模型的配置。
type ModelConfig struct {
	Kind      string             `yaml:"kind"` // linear / affinity / rpc / none
	Name      string             `yaml:"name"`
	Bias      float64            `yaml:"bias"`
	Weights   map[string]float64 `yaml:"weights"`
	Endpoint  string             `yaml:"endpoint"`
	TimeoutMs int                `yaml:"timeout_ms"`
}

// Load 从 YAML 文件读取配置。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Build 根据配置组装引擎。obs 可为 nil。
func (c *Config) Build(obs observe.Observer) (*engine.Engine, error) {
	kv, err := c.buildStore()
	if err != nil {
		return nil, err
	}

	profiles := profile.NewPersistent(kv, "profile", 0)

	registry := source.NewRegistry()
	for _, sc := range c.Sources {
		s, err := buildSource(sc, kv, profiles)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}

	lightModel, err := buildModel(c.Models.Light)
	if err != nil {
		return nil, fmt.Errorf("light model: %w", err)
	}
	heavyModel, err := buildModel(c.Models.Heavy)
	if err != nil {
		return nil, fmt.Errorf("heavy model: %w", err)
	}

	rules := make([]*filter.Rule, 0, len(c.PostProcess.Rules))
	for _, expr := range c.PostProcess.Rules {
		r, err := filter.NewRule(expr)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", expr, err)
		}
		rules = append(rules, r)
	}

	var blocklist *filter.Blocklist
	if len(c.PostProcess.Blocklist) > 0 || c.PostProcess.BlocklistKey != "" || c.PostProcess.UserBlockKey != "" {
		blocklist = &filter.Blocklist{
			ItemIDs:       c.PostProcess.Blocklist,
			Store:         kv,
			Key:           c.PostProcess.BlocklistKey,
			UserKeyPrefix: c.PostProcess.UserBlockKey,
		}
	}

	opts := engine.Options{
		OverFetchFactor:   c.Funnel.OverFetchFactor,
		SourceTimeout:     time.Duration(c.Funnel.SourceTimeoutMs) * time.Millisecond,
		GlobalDeadline:    time.Duration(c.Funnel.GlobalDeadlineMs) * time.Millisecond,
		MaxInFlight:       c.Funnel.MaxInFlight,
		ShortlistFactor:   c.Funnel.ShortlistFactor,
		ShortlistCeiling:  c.Funnel.ShortlistCeiling,
		MaxPerSource:      c.Funnel.MaxPerSource,
		SimilarityPenalty: c.Funnel.SimilarityPenalty,
		FeedbackBuffer:    c.Funnel.FeedbackBuffer,
		Blocklist:         blocklist,
		ExclusionRules:    rules,
		Observer:          obs,
	}

	return engine.New(registry, profiles, lightModel, heavyModel, opts), nil
}

func (c *Config) buildStore() (core.Store, error) {
	switch c.Store.Kind {
	case "", "memory":
		return store.NewMemory(), nil
	case "redis":
		return store.NewRedis(c.Store.Addr, c.Store.DB)
	default:
		return nil, fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
}

func buildSource(sc SourceConfig, kv core.Store, profiles profile.Store) (source.Source, error) {
	desc := source.Descriptor{
		Name:        sc.Name,
		Type:        core.ItemType(sc.Type),
		Weight:      sc.Weight,
		Description: sc.Description,
	}
	switch sc.Kind {
	case "", "static":
		return &source.Static{
			Desc:       desc,
			Store:      kv,
			Key:        sc.Key,
			IDs:        sc.IDs,
			Confidence: sc.Confidence,
		}, nil
	case "rpc":
		if sc.Endpoint == "" {
			return nil, fmt.Errorf("source %q: endpoint is required", sc.Name)
		}
		return source.NewRPC(desc, sc.Endpoint), nil
	case "history":
		return &source.History{
			Desc:       desc,
			Profiles:   profiles,
			Actions:    sc.Actions,
			Confidence: sc.Confidence,
		}, nil
	default:
		return nil, fmt.Errorf("source %q: unknown kind %q", sc.Name, sc.Kind)
	}
}

func buildModel(mc ModelConfig) (model.Model, error) {
	switch mc.Kind {
	case "", "none":
		// 无模型：该阶段走文档化的降级排序
		return nil, nil
	case "linear":
		return &model.Linear{ModelName: mc.Name, Bias: mc.Bias, Weights: mc.Weights}, nil
	case "affinity":
		return &model.Affinity{ModelName: mc.Name, Base: mc.Weights, Bias: mc.Bias}, nil
	case "rpc":
		if mc.Endpoint == "" {
			return nil, fmt.Errorf("endpoint is required")
		}
		name := mc.Name
		if name == "" {
			name = "rpc"
		}
		return model.NewRPCModel(name, mc.Endpoint, time.Duration(mc.TimeoutMs)*time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", mc.Kind)
	}
}
