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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/anthology"
	"github.com/poiesic/anthology/config"
	"github.com/poiesic/anthology/core"
)

func main() {
	// Secrets such as API keys come from the environment; a local .env
	// is a convenience, not a requirement.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "anthology",
		Usage: "Semantic search over research paper abstracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search for papers and stream a grounded answer",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   core.DefaultTopK,
					},
					&cli.BoolFlag{
						Name:  "metadata",
						Usage: "Print the metadata event as JSON before the answer",
					},
				},
			},
			{
				Name:      "lookup",
				Usage:     "Fetch one paper by its identifier",
				ArgsUsage: "<paper-id>",
				Action:    lookupCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := engine.Search(ctx, &core.SearchRequest{Query: query, TopK: c.Int("top-k")}, nil)
	if err != nil {
		return err
	}

	for event := range events {
		switch event.Type {
		case core.StreamEventMetadata:
			if c.Bool("metadata") {
				data, err := json.MarshalIndent(event.Metadata, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, string(data))
			}
			printResults(event.Metadata.Results)
		case core.StreamEventChunk:
			fmt.Print(event.Chunk)
		case core.StreamEventDone:
			fmt.Println()
		case core.StreamEventError:
			return fmt.Errorf("search failed: %s", event.Error)
		}
	}
	return ctx.Err()
}

func printResults(results []core.SearchResult) {
	for i, r := range results {
		line := fmt.Sprintf("[%d] %s", i+1, r.Paper.Title)
		if r.Paper.Year != "" {
			line += fmt.Sprintf(" (%s)", r.Paper.Year)
		}
		line += " " + r.Paper.PaperID
		fmt.Println(line)
	}
	if len(results) > 0 {
		fmt.Println()
	}
}

func lookupCommand(c *cli.Context) error {
	paperID := strings.TrimSpace(c.Args().First())
	if paperID == "" {
		return fmt.Errorf("a paper identifier is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	paper, err := engine.Lookup(context.Background(), paperID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func openEngine(c *cli.Context) (*anthology.Engine, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return anthology.NewEngine(cfg)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
