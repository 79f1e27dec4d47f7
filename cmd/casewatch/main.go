package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/joelkehle/casewatch/internal/analysis"
	"github.com/joelkehle/casewatch/internal/casestore"
	"github.com/joelkehle/casewatch/internal/embedding"
	"github.com/joelkehle/casewatch/internal/httpapi"
	"github.com/joelkehle/casewatch/internal/keywords"
	"github.com/joelkehle/casewatch/internal/llm"
	"github.com/joelkehle/casewatch/internal/registry"
	"github.com/joelkehle/casewatch/internal/report"
	"github.com/joelkehle/casewatch/internal/textextract"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "casewatch.db", "SQLite database path")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := setupTracing(ctx)
	defer shutdownTracing()

	store, err := casestore.New(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	client, err := llm.NewClient(ctx, llm.Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
	})
	llmName := "none"
	var gen llm.Generator
	var emb llm.Embedder
	if err != nil {
		if !errors.Is(err, llm.ErrNoProvider) {
			log.Fatal(err)
		}
		log.Printf("casewatch no llm provider configured, offline strategies only")
	} else {
		gen = client.Generator()
		emb = client.Embedder()
		llmName = client.Name()
	}

	usptoKey := strings.TrimSpace(os.Getenv("USPTO_API_KEY"))
	var reg analysis.RegistryClient
	if usptoKey != "" {
		c, err := registry.NewClient(registry.Config{
			APIKey:             usptoKey,
			RateLimitPerMinute: envInt("USPTO_RATE_LIMIT", registry.DefaultRateLimitPerMinute),
		})
		if err != nil {
			log.Fatal(err)
		}
		reg = c
	} else {
		log.Printf("casewatch USPTO_API_KEY not set, registry imports disabled")
	}

	var synth *report.Synthesizer
	if gen != nil {
		synth, err = report.NewSynthesizer(gen)
		if err != nil {
			log.Fatal(err)
		}
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

	handler := httpapi.NewServer(httpapi.Config{
		Store:    store,
		Pipeline: pipeline,
		PDF:      report.NewPDFRenderer(),
		LLMName:  llmName,
	})

	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("casewatch listening addr=%s db=%s llm=%s registry=%t", *addr, *dbPath, llmName, reg != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// setupTracing wires an OTLP HTTP exporter when an endpoint is configured,
// and is a no-op otherwise.
func setupTracing(ctx context.Context) func() {
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return func() {}
	}
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		log.Printf("casewatch tracing_disabled err=%q", err.Error())
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
