// case-analyze runs the analysis pipeline for one case from the command
// line: analyze its documents, and optionally synthesize its report.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/casewatch/internal/analysis"
	"github.com/joelkehle/casewatch/internal/casestore"
	"github.com/joelkehle/casewatch/internal/embedding"
	"github.com/joelkehle/casewatch/internal/keywords"
	"github.com/joelkehle/casewatch/internal/llm"
	"github.com/joelkehle/casewatch/internal/registry"
	"github.com/joelkehle/casewatch/internal/report"
	"github.com/joelkehle/casewatch/internal/textextract"
)

func main() {
	dbPath := flag.String("db", "casewatch.db", "SQLite database path")
	caseID := flag.String("case", "", "Case ID to analyze")
	withReport := flag.Bool("report", false, "Also synthesize the similarity report")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(*caseID) == "" {
		log.Fatal("missing required flag -case")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := casestore.New(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	var gen llm.Generator
	var emb llm.Embedder
	client, err := llm.NewClient(ctx, llm.Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
	})
	if err != nil && !errors.Is(err, llm.ErrNoProvider) {
		log.Fatal(err)
	}
	if client != nil {
		gen = client.Generator()
		emb = client.Embedder()
	}

	var synth *report.Synthesizer
	if gen != nil {
		if synth, err = report.NewSynthesizer(gen); err != nil {
			log.Fatal(err)
		}
	}

	usptoKey := strings.TrimSpace(os.Getenv("USPTO_API_KEY"))
	var reg analysis.RegistryClient
	if usptoKey != "" {
		c, err := registry.NewClient(registry.Config{APIKey: usptoKey})
		if err != nil {
			log.Fatal(err)
		}
		reg = c
	}

	pipeline, err := analysis.NewPipeline(analysis.Config{
		Store:       store,
		Registry:    reg,
		Reader:      textextract.NewReader(&http.Client{Timeout: 60 * time.Second}),
		Keywords:    keywords.Select(gen),
		Embedder:    embedding.Select(emb),
		Synthesizer: synth,
		USPTOAPIKey: usptoKey,
	})
	if err != nil {
		log.Fatal(err)
	}

	res, err := pipeline.AnalyzeCase(ctx, *caseID)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("case-analyze analyze success=%t message=%q", res.Success, res.Message)
	if !res.Success {
		os.Exit(1)
	}

	if *withReport {
		if synth == nil {
			log.Fatal("report requested but no llm provider configured")
		}
		res, err = pipeline.GenerateReport(ctx, *caseID)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("case-analyze report success=%t message=%q", res.Success, res.Message)
		if !res.Success {
			os.Exit(1)
		}
	}
}
