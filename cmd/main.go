package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/ingest"
	"github.com/agenthub/agenthub/pkg/llm"
	"github.com/agenthub/agenthub/pkg/retriever"
	"github.com/agenthub/agenthub/pkg/store"
	"github.com/agenthub/agenthub/server"
)

type flags struct {
	configPath string
	ingestPath string
	ingestURL  string
	chat       bool

	port       int
	dbURL      string
	ollamaURL  string
	model      string
	collection string
}

func main() {
	f := parseFlags()

	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, f)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(cfg, f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingestPath, "ingest", "", "Ingest text files under this path and exit")
	flag.StringVar(&f.ingestURL, "ingest-url", "", "Scrape and ingest this URL and exit")
	flag.BoolVar(&f.chat, "chat", false, "Interactive chat instead of serving HTTP")
	flag.IntVar(&f.port, "port", 0, "HTTP port")
	flag.StringVar(&f.dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&f.ollamaURL, "ollama-url", "", "Ollama server URL")
	flag.StringVar(&f.model, "model", "", "Generation model")
	flag.StringVar(&f.collection, "collection", "", "Collection (table) name")
	flag.Parse()

	return f
}

func applyFlags(cfg *config.Config, f flags) {
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}
	if f.ollamaURL != "" {
		cfg.LLM.BaseURL = f.ollamaURL
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.collection != "" {
		cfg.Database.Collection = f.collection
	}
}

func run(cfg *config.Config, f flags) error {
	embedder, err := llm.SharedEmbedder(llm.EmbedderConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		Collection: cfg.Database.Collection,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	generator := llm.NewGeneratorWithConfig(llm.GeneratorConfig{
		Model:          cfg.LLM.Model,
		BaseURL:        cfg.LLM.BaseURL,
		ConnectTimeout: time.Duration(cfg.LLM.ConnectTimeoutSecs) * time.Second,
		StreamTimeout:  time.Duration(cfg.LLM.StreamTimeoutSecs) * time.Second,
	})

	ret := retriever.NewWithConfig(retriever.RetrieverConfig{}, embedder, vectorStore)
	engine := llm.NewChatEngine(llm.ChatConfig{}, ret, generator)

	var onProgress func(int)
	var bar *progressbar.ProgressBar
	if f.ingestPath != "" || f.ingestURL != "" {
		bar = ingestBar()
		onProgress = func(stored int) { bar.Set(stored) }
	}

	ingestor := ingest.NewWithConfig(ingest.IngestorConfig{
		Extensions: cfg.Ingest.Extensions,
		BatchSize:  cfg.Database.BatchSize,
		MaxDepth:   cfg.Scraper.MaxDepth,
		RateLimit:  cfg.Scraper.RateLimit,
		OnProgress: onProgress,
	}, embedder, vectorStore)

	ctx := context.Background()

	switch {
	case f.ingestPath != "":
		n, err := ingestor.IngestPath(ctx, f.ingestPath)
		bar.Finish()
		if err != nil {
			return fmt.Errorf("ingest failed after %d chunks: %v", n, err)
		}
		color.Green("\n✓ Ingested %d chunks from %s\n", n, f.ingestPath)
		return nil

	case f.ingestURL != "":
		n, err := ingestor.IngestURL(ctx, f.ingestURL)
		bar.Finish()
		if err != nil {
			return fmt.Errorf("ingest failed after %d chunks: %v", n, err)
		}
		color.Green("\n✓ Ingested %d pages from %s\n", n, f.ingestURL)
		return nil

	case f.chat:
		return chatLoop(ctx, engine)

	default:
		srv := server.New(server.Config{
			Port:  cfg.Server.Port,
			Model: cfg.LLM.Model,
		}, engine, ret, ingestor)
		return srv.Start()
	}
}

func ingestBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.BlueString("Storing in vector database...")),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

func chatLoop(ctx context.Context, engine *llm.ChatEngine) error {
	color.Cyan("\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") {
			break
		}

		stream, err := engine.ChatStream(ctx, question, 0)
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("Assistant: ")
		for tok := range stream {
			if tok.Err != nil {
				color.Red("\nError: %v\n", tok.Err)
				break
			}
			if tok.Done {
				break
			}
			fmt.Print(tok.Token)
		}
		fmt.Println()
	}

	return nil
}
