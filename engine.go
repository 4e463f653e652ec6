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


// Package anthology assembles the paper-search pipeline: filter
// parsing, query interpretation, reformulation, multi-query retrieval,
// rank fusion and streamed narrative synthesis over a vector index of
// research-paper abstracts.
package anthology

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/anthology/ai"
	"github.com/poiesic/anthology/ai/openai"
	"github.com/poiesic/anthology/config"
	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
	"github.com/poiesic/anthology/index/badger"
	"github.com/poiesic/anthology/index/qdrant"
	"github.com/poiesic/anthology/parse"
	"github.com/poiesic/anthology/reform"
	"github.com/poiesic/anthology/retrieval"
	"github.com/poiesic/anthology/stream"
)

// Engine is the top-level facade. It owns the AI provider, the vector
// index and the assembled pipeline, and serves search requests as
// event streams.
type Engine struct {
	provider     ai.Provider
	idx          index.Index
	pipeline     *retrieval.Pipeline
	orchestrator *stream.Orchestrator
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.Provider
	idx      index.Index
}

// WithProvider substitutes the AI provider, bypassing the configured
// OpenAI-compatible endpoints. Intended for tests.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithIndex substitutes the vector index, bypassing the configured
// backend. Intended for tests.
func WithIndex(idx index.Index) EngineOption {
	return func(o *engineOptions) {
		o.idx = idx
	}
}

// NewEngine wires the pipeline from configuration.
func NewEngine(cfg *config.AppConfig, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		aiOpts := []ai.ConfigOption{
			ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
			ai.WithChatHost(cfg.AI.ChatHost),
			ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
			ai.WithChatModel(cfg.AI.ChatModel),
			ai.WithAPIKey(cfg.AI.APIKey()),
			ai.WithMaxTokens(cfg.AI.MaxTokens),
		}
		if cfg.AI.Temperature != nil {
			aiOpts = append(aiOpts, ai.WithTemperature(*cfg.AI.Temperature))
		}
		aiConfig := ai.NewConfig(aiOpts...)
		var err error
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			return nil, err
		}
	}

	idx := options.idx
	if idx == nil {
		var err error
		idx, err = openIndex(cfg)
		if err != nil {
			provider.Close()
			return nil, err
		}
	}

	engine, err := assemble(cfg, provider, idx)
	if err != nil {
		idx.Close()
		provider.Close()
		return nil, err
	}
	return engine, nil
}

func openIndex(cfg *config.AppConfig) (index.Index, error) {
	switch cfg.Index.Type {
	case "badger":
		return badger.Open(cfg.Index.Path)
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey(),
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Index.Type)
	}
}

func assemble(cfg *config.AppConfig, provider ai.Provider, idx index.Index) (*Engine, error) {
	parser, err := parse.NewFilterParser(provider.Completer())
	if err != nil {
		return nil, err
	}
	interpreter, err := parse.NewInterpreter(idx)
	if err != nil {
		return nil, err
	}
	reformer, err := reform.NewReformulator(provider.Completer(),
		reform.WithCount(cfg.Retrieval.ReformulateCount))
	if err != nil {
		return nil, err
	}
	pipeline, err := retrieval.NewPipeline(provider.Embedder(), idx,
		retrieval.WithKMultiplier(cfg.Retrieval.KMultiplier),
		retrieval.WithMinSimilarity(float32(cfg.Retrieval.MinSimilarity)),
		retrieval.WithSearchPoolSize(cfg.Retrieval.SearchPoolSize))
	if err != nil {
		return nil, err
	}
	aggOpts := []retrieval.AggregatorOption{retrieval.WithRRFK(cfg.Retrieval.RRFK)}
	if cfg.Retrieval.ScoreWeight != nil {
		aggOpts = append(aggOpts, retrieval.WithScoreWeight(*cfg.Retrieval.ScoreWeight))
	}
	aggregator, err := retrieval.NewAggregator(aggOpts...)
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	orchestrator, err := stream.NewOrchestrator(parser, interpreter, reformer,
		pipeline, aggregator, stream.NewSynthesizer(provider.Completer()), idx)
	if err != nil {
		pipeline.Release()
		return nil, err
	}

	return &Engine{
		provider:     provider,
		idx:          idx,
		pipeline:     pipeline,
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}, nil
}

// Search validates the request and returns the event stream: one
// metadata event, narrative chunks, then done, or an early error event.
// An optional monitor observes the pipeline stages.
func (e *Engine) Search(ctx context.Context, req *core.SearchRequest, monitor stream.PipelineMonitor) (<-chan core.StreamEvent, error) {
	return e.orchestrator.Search(ctx, req, monitor)
}

// Lookup fetches a single paper by identifier.
func (e *Engine) Lookup(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
	return e.idx.Get(ctx, parse.NormalizePaperID(paperID))
}

// Index exposes the underlying vector index, mainly for seeding.
func (e *Engine) Index() index.Index {
	return e.idx
}

// Provider exposes the AI provider.
func (e *Engine) Provider() ai.Provider {
	return e.provider
}

func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.idx.Close(); err != nil {
		e.logger.Error("error closing vector index", "err", err)
		return err
	}
	return nil
}
