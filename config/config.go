// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads the application configuration from YAML with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AIConfig configures the language-model and embedding providers.
// Temperature is a pointer because zero is a meaningful setting; nil
// means unset and takes the default.
type AIConfig struct {
	EmbeddingHost  string   `yaml:"embedding_host"`
	ChatHost       string   `yaml:"chat_host"`
	EmbeddingModel string   `yaml:"embedding_model"`
	ChatModel      string   `yaml:"chat_model"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Type   string        `yaml:"type"` // "badger" or "qdrant"
	Path   string        `yaml:"path"` // badger database directory
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig holds the fusion and fan-out knobs. ScoreWeight is a
// pointer so an explicit zero (pure rank fusion) is distinguishable
// from unset.
type RetrievalConfig struct {
	TopK             int      `yaml:"top_k"`
	ReformulateCount int      `yaml:"reformulate_count"`
	KMultiplier      int      `yaml:"k_multiplier"`
	RRFK             int      `yaml:"rrf_k"`
	ScoreWeight      *float64 `yaml:"score_weight"`
	MinSimilarity    float64  `yaml:"min_similarity"`
	SearchPoolSize   int      `yaml:"search_pool_size"`
}

// AppConfig is the root application configuration.
type AppConfig struct {
	AI        AIConfig        `yaml:"ai"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration: a local OpenAI-compatible
// endpoint and an embedded badger index.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// APIKey resolves the provider API key from the configured environment
// variable, defaulting to "none" for keyless local endpoints.
func (c *AIConfig) APIKey() string {
	if c.APIKeyEnv != "" {
		if key := os.Getenv(c.APIKeyEnv); key != "" {
			return key
		}
	}
	return "none"
}

// APIKey resolves the Qdrant API key from the configured environment
// variable; empty means unauthenticated.
func (c *QdrantConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Validate rejects configurations that cannot be wired.
func (c *AppConfig) Validate() error {
	switch c.Index.Type {
	case "badger":
		if c.Index.Path == "" {
			return errors.New("index.path is required for the badger backend")
		}
	case "qdrant":
		if c.Index.Qdrant == nil || c.Index.Qdrant.URL == "" {
			return errors.New("index.qdrant.url is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("unknown index type %q", c.Index.Type)
	}
	if w := c.Retrieval.ScoreWeight; w != nil && (*w < 0 || *w > 1) {
		return fmt.Errorf("retrieval.score_weight must be in [0,1], got %g", *w)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity must be in [0,1], got %g", c.Retrieval.MinSimilarity)
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = "http://localhost:11434"
	}
	if cfg.AI.ChatHost == "" {
		cfg.AI.ChatHost = cfg.AI.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "llama3.1:8b"
	}
	if cfg.AI.Temperature == nil {
		cfg.AI.Temperature = floatp(0.3)
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 512
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "badger"
	}
	if cfg.Index.Type == "badger" && cfg.Index.Path == "" {
		cfg.Index.Path = "anthology.db"
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "papers"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 30
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.ReformulateCount == 0 {
		cfg.Retrieval.ReformulateCount = 3
	}
	if cfg.Retrieval.KMultiplier == 0 {
		cfg.Retrieval.KMultiplier = 2
	}
	if cfg.Retrieval.RRFK == 0 {
		cfg.Retrieval.RRFK = 60
	}
	if cfg.Retrieval.ScoreWeight == nil {
		cfg.Retrieval.ScoreWeight = floatp(0.3)
	}
	if cfg.Retrieval.SearchPoolSize == 0 {
		cfg.Retrieval.SearchPoolSize = 4
	}
}

func floatp(v float64) *float64 { return &v }
