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


// Seeder populates the vector index with paper metadata and abstract
// embeddings. With no source file it loads a small built-in sample
// corpus, enough to exercise search locally.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/poiesic/anthology"
	"github.com/poiesic/anthology/config"
	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index/qdrant"
)

var samplePapers = []core.PaperMetadata{
	{
		PaperID:  "2023.acl-long.412",
		Title:    "Low-Resource Machine Translation with Monolingual Pivot Languages",
		Abstract: "Parallel corpora are scarce for most of the world's languages. We show that pivoting through a related high-resource language, using only monolingual data on the low-resource side, recovers much of the quality gap. Experiments on twelve language pairs improve over back-translation baselines by up to 4.1 BLEU.",
		Year:     "2023",
		Authors:  []string{"Amara Diallo", "Jonas Weber"},
		Language: "eng",
		Awards:   []string{"Best Paper"},
	},
	{
		PaperID:  "2023.emnlp-main.217",
		Title:    "Do Reformulated Queries Help? A Study of Query Expansion for Dense Retrieval",
		Abstract: "Dense retrievers are sensitive to surface phrasing. We systematically compare paraphrase-based, keyword-based and LLM-generated query expansions across four retrieval benchmarks, and find that fusing results from several reformulations consistently beats any single expansion strategy.",
		Year:     "2023",
		Authors:  []string{"Mei Chen", "Priya Raghavan"},
		Language: "eng",
	},
	{
		PaperID:  "2022.naacl-main.89",
		Title:    "Reciprocal Rank Fusion Revisited for Neural Ranking Ensembles",
		Abstract: "Reciprocal rank fusion is a simple, training-free method for combining ranked lists. We analyze its behavior when the lists come from neural rankers with calibrated scores, and propose a hybrid that interpolates rank-based and score-based evidence.",
		Year:     "2022",
		Authors:  []string{"Tomas Lindgren"},
		Language: "eng",
	},
	{
		PaperID:  "2021.acl-long.55",
		Title:    "Prompt Engineering for Zero-Shot Text Classification: An Empirical Survey",
		Abstract: "We survey prompting strategies for zero-shot classification with large language models, covering template design, verbalizer choice and calibration, and report which choices matter across ten datasets.",
		Year:     "2021",
		Authors:  []string{"Sofia Marchetti", "Daniel Okafor"},
		Language: "eng",
	},
	{
		PaperID:  "2020.emnlp-main.550",
		Title:    "Dense Passage Retrieval for Open-Domain Question Answering",
		Abstract: "We show that retrieval can be practically implemented using dense representations alone, where embeddings are learned from a small number of questions and passages by a simple dual-encoder framework.",
		Year:     "2020",
		Authors:  []string{"Vladimir Karpukhin", "Barlas Oguz"},
		Language: "eng",
	},
	{
		PaperID:  "W99-0512",
		Title:    "Statistical Alignment Models for Bilingual Corpora Revisited",
		Abstract: "We revisit classic statistical word alignment models and evaluate their behavior on small bilingual corpora, with an analysis of where heuristic symmetrization helps.",
		Year:     "1999",
		Authors:  []string{"Karl Svensson"},
		Language: "eng",
	},
	{
		PaperID:  "A00-1031",
		Title:    "Sentence Boundary Detection with Maximum Entropy Models",
		Abstract: "A maximum entropy approach to sentence boundary detection that requires no hand-crafted rules, evaluated on newswire and speech transcripts.",
		Year:     "2000",
		Authors:  []string{"Helen Park"},
		Language: "eng",
	},
}

var (
	configPath   = flag.String("config", "config.yaml", "path to YAML configuration")
	seedFileName = flag.String("src", "", "JSONL file of papers, one metadata object per line")
	batchSize    = flag.Int("batch", 16, "papers embedded and upserted per batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// papersFromFile reads one JSON-encoded PaperMetadata per line.
func papersFromFile(filename string) ([]core.PaperMetadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var papers []core.PaperMetadata
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var paper core.PaperMetadata
		if err := json.Unmarshal(line, &paper); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		papers = append(papers, paper)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return papers, nil
}

// embedText builds the text that gets embedded for a paper. It matches
// what document-as-query search reconstructs from a proxy paper.
func embedText(paper *core.PaperMetadata) string {
	if paper.Abstract == "" {
		return paper.Title
	}
	return paper.Title + "\n\n" + paper.Abstract
}

func seed(ctx context.Context, engine *anthology.Engine, papers []core.PaperMetadata, batchSize int) error {
	embedder := engine.Provider().Embedder()
	logger := slog.Default().With("component", "seeder")

	ensured := false
	for start := 0; start < len(papers); start += batchSize {
		end := min(start+batchSize, len(papers))
		batch := papers[start:end]

		refs := make([]*core.PaperMetadata, len(batch))
		texts := make([]string, len(batch))
		for i := range batch {
			refs[i] = &batch[i]
			texts[i] = embedText(&batch[i])
		}

		vectors, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}

		// A Qdrant collection must exist before the first upsert; the
		// dimension comes from the first embedding batch.
		if !ensured {
			if qc, ok := engine.Index().(*qdrant.Client); ok && len(vectors) > 0 {
				if err := qc.EnsureCollection(ctx, len(vectors[0])); err != nil {
					return fmt.Errorf("ensuring collection: %w", err)
				}
			}
			ensured = true
		}

		if err := engine.Index().Upsert(ctx, refs, vectors); err != nil {
			return fmt.Errorf("upserting batch at %d: %w", start, err)
		}
		logger.Info("seeded batch", "from", start, "to", end)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	engine, err := anthology.NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	papers := samplePapers
	if *seedFileName != "" {
		papers, err = papersFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	}

	if err := seed(context.Background(), engine, papers, *batchSize); err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "papers", len(papers))
}
