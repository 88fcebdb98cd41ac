package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/pantry-manager/internal/address"
	"github.com/zombor/pantry-manager/internal/fiscal"
	"github.com/zombor/pantry-manager/internal/pantry"
	"github.com/zombor/pantry-manager/internal/remote"
	"github.com/zombor/pantry-manager/internal/scanning"
	"github.com/zombor/pantry-manager/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type config struct {
	port        *int
	dbPath      *string
	storagePath *string

	llm         *string
	scanner     *string
	geminiKey   *string
	geminiModel *string
	ollamaURL   *string
	ollamaModel *string
	openaiKey   *string
	openaiURL   *string
	openaiModel *string
	temperature *float64
	maxTokens   *int
	limit       *int

	fiscalURL   *string
	fiscalToken *string
	autoImport  *bool
	addToPantry *bool
	cepURL      *string

	mongoURI *string
	mongoDB  *string

	authUser *string
	authPass *string
	seed     *bool
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	flags := ff.NewFlagSet("pantry-manager")
	cfg := config{
		port:        flags.IntLong("port", 8080, "HTTP server port"),
		dbPath:      flags.StringLong("db", "pantry-manager.db", "Database file path"),
		storagePath: flags.StringLong("storage", "./receipts", "Directory for receipt photos"),

		llm:         flags.StringLong("llm", "none", "Text provider for populate: 'gemini', 'ollama', 'openai' or 'none'"),
		scanner:     flags.StringLong("scanner", "none", "Vision provider for receipt photos: 'gemini', 'ollama' or 'none'"),
		geminiKey:   flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel: flags.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name"),
		ollamaURL:   flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel: flags.StringLong("ollama-model", "llava", "Ollama model name"),
		openaiKey:   flags.StringLong("openai-key", "", "OpenAI-compatible API key (or set OPENAI_API_KEY env var)"),
		openaiURL:   flags.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL"),
		openaiModel: flags.StringLong("openai-model", "gpt-4o-mini", "OpenAI-compatible model name"),
		temperature: flags.Float64Long("temperature", float64(pantry.DefaultPopulateOptions.Temperature), "Sampling temperature for populate prompts"),
		maxTokens:   flags.IntLong("max-tokens", pantry.DefaultPopulateOptions.MaxTokens, "Maximum tokens per populate completion"),
		limit:       flags.IntLong("populate-limit", pantry.DefaultPopulateOptions.Limit, "Number of entries to ask for when populating"),

		fiscalURL:   flags.StringLong("fiscal-url", "", "Fiscal receipt lookup API base URL"),
		fiscalToken: flags.StringLong("fiscal-token", "", "Fiscal receipt lookup API bearer token"),
		autoImport:  flags.BoolLong("auto-import", "Import receipt items when the client does not say otherwise"),
		addToPantry: flags.BoolLong("add-to-pantry", "Add imported receipt items to the pantry stock"),
		cepURL:      flags.StringLong("cep-url", address.DefaultBaseURL, "CEP lookup API base URL (empty disables it)"),

		mongoURI: flags.StringLong("mongo-uri", "", "MongoDB URI for profiles and the catalog mirror (optional)"),
		mongoDB:  flags.StringLong("mongo-db", "pantry", "MongoDB database name"),

		authUser: flags.StringLong("auth-user", "", "Basic auth username (optional)"),
		authPass: flags.StringLong("auth-pass", "", "Basic auth password (optional)"),
		seed:     flags.BoolLong("seed", "Insert default categories and units into empty tables"),
	}
	showVersion := flags.BoolLong("version", "Show version information")

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	ctx := context.Background()

	// Initialize database
	slog.Info("Initializing database...", "path", *cfg.dbPath)
	db, err := pantry.NewBoltDB(*cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// Remote store is optional; without it profiles answer 503 and the
	// catalog is not mirrored
	var (
		mirror   pantry.Mirror
		profiles server.ProfileStore
	)
	if *cfg.mongoURI != "" {
		store, err := remote.NewStore(ctx, *cfg.mongoURI, *cfg.mongoDB)
		if err != nil {
			return fmt.Errorf("initializing remote store: %w", err)
		}
		defer store.Close(context.Background())
		mirror, profiles = store, store
	}

	providers := newProviders(cfg)
	defer providers.Close()

	generator, err := providers.generator(ctx, *cfg.llm)
	if err != nil {
		return err
	}
	scanner, err := providers.scanner(ctx, *cfg.scanner)
	if err != nil {
		return err
	}

	pantryService := pantry.NewService(db, generator, mirror)
	pantryService.SetPopulateOptions(pantry.PopulateOptions{
		Limit:       *cfg.limit,
		MaxTokens:   *cfg.maxTokens,
		Temperature: float32(*cfg.temperature),
	})
	if *cfg.seed {
		if err := pantryService.SeedDefaults(ctx); err != nil {
			return fmt.Errorf("seeding defaults: %w", err)
		}
	}

	// Without a lookup service the scan routes answer 503; the catalog and
	// pantry keep working
	var lookup fiscal.Lookup
	if *cfg.fiscalURL != "" {
		httpLookup, err := fiscal.NewHTTPLookup(fiscal.HTTPLookupConfig{
			BaseURL: *cfg.fiscalURL,
			Token:   *cfg.fiscalToken,
		})
		if err != nil {
			return fmt.Errorf("initializing fiscal lookup: %w", err)
		}
		lookup = httpLookup
	} else {
		slog.Warn("No fiscal lookup URL configured, receipt scanning is disabled")
	}

	// Initialize storage
	slog.Info("Initializing storage...", "path", *cfg.storagePath)
	storage, err := fiscal.NewLocalStorage(*cfg.storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	fiscalService := fiscal.NewService(fiscal.NewFetcher(lookup), pantryService, scanner, storage, fiscal.ImporterConfig{
		AddToPantry: *cfg.addToPantry,
	})

	deps := server.Deps{
		Pantry:   pantryService,
		Fiscal:   fiscalService,
		Profiles: profiles,
	}
	if *cfg.cepURL != "" {
		deps.Addresses = address.NewClient(*cfg.cepURL, 10*time.Second)
	}

	srv := server.NewServer(deps, server.BasicAuth{
		Username: *cfg.authUser,
		Password: *cfg.authPass,
	})
	srv.SetAutoImport(*cfg.autoImport)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *cfg.port)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *cfg.authUser != "" || *cfg.authPass != "" {
		slog.Info("Basic auth enabled", "user", *cfg.authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// providers builds LLM clients on demand so one Gemini or Ollama client
// serves both text and vision
type providers struct {
	cfg    config
	gemini *scanning.Gemini
	ollama *scanning.Ollama
	openai *scanning.OpenAI
}

func newProviders(cfg config) *providers {
	return &providers{cfg: cfg}
}

func (p *providers) getGemini(ctx context.Context) (*scanning.Gemini, error) {
	if p.gemini != nil {
		return p.gemini, nil
	}
	apiKey := *p.cfg.geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
	}
	slog.Info("Initializing Gemini...", "model", *p.cfg.geminiModel)
	g, err := scanning.NewGemini(ctx, apiKey, *p.cfg.geminiModel)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini: %w", err)
	}
	p.gemini = g
	return g, nil
}

func (p *providers) getOllama() (*scanning.Ollama, error) {
	if p.ollama != nil {
		return p.ollama, nil
	}
	slog.Info("Initializing Ollama...", "url", *p.cfg.ollamaURL, "model", *p.cfg.ollamaModel)
	o, err := scanning.NewOllama(*p.cfg.ollamaURL, *p.cfg.ollamaModel)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama: %w", err)
	}
	p.ollama = o
	return o, nil
}

// generator returns the text provider, or nil for "none"
func (p *providers) generator(ctx context.Context, name string) (scanning.Generator, error) {
	switch name {
	case "", "none":
		slog.Info("No text provider configured; populate is disabled")
		return nil, nil
	case "gemini":
		return p.getGemini(ctx)
	case "ollama":
		return p.getOllama()
	case "openai":
		apiKey := *p.cfg.openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		slog.Info("Initializing OpenAI-compatible client...", "url", *p.cfg.openaiURL, "model", *p.cfg.openaiModel)
		o, err := scanning.NewOpenAI(scanning.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: *p.cfg.openaiURL,
			Model:   *p.cfg.openaiModel,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing openai: %w", err)
		}
		p.openai = o
		return o, nil
	default:
		return nil, fmt.Errorf("invalid llm provider %q: want gemini, ollama, openai or none", name)
	}
}

// scanner returns the vision provider, or nil for "none"
func (p *providers) scanner(ctx context.Context, name string) (scanning.Scanner, error) {
	switch name {
	case "", "none":
		slog.Info("No vision provider configured; photo scanning is disabled")
		return nil, nil
	case "gemini":
		return p.getGemini(ctx)
	case "ollama":
		return p.getOllama()
	default:
		return nil, fmt.Errorf("invalid scanner %q: want gemini, ollama or none", name)
	}
}

// Close releases every client that was created
func (p *providers) Close() {
	var closers []io.Closer
	if p.gemini != nil {
		closers = append(closers, p.gemini)
	}
	if p.ollama != nil {
		closers = append(closers, p.ollama)
	}
	if p.openai != nil {
		closers = append(closers, p.openai)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close provider", "error", err)
		}
	}
}
