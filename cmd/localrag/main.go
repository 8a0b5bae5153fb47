// Package main is the Local-RAG CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/chat"
	"github.com/TWAKATitan/Local-RAG/internal/cli"
	"github.com/TWAKATitan/Local-RAG/internal/config"
	"github.com/TWAKATitan/Local-RAG/internal/embedding"
	"github.com/TWAKATitan/Local-RAG/internal/index"
	"github.com/TWAKATitan/Local-RAG/internal/keyword"
	"github.com/TWAKATitan/Local-RAG/internal/lifecycle"
	"github.com/TWAKATitan/Local-RAG/internal/llm"
	"github.com/TWAKATitan/Local-RAG/internal/registry"
	"github.com/TWAKATitan/Local-RAG/internal/server"
	"github.com/TWAKATitan/Local-RAG/internal/vectorstore"
	"github.com/TWAKATitan/Local-RAG/internal/watcher"
	"github.com/TWAKATitan/Local-RAG/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/localrag/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. When the default path is also absent, built-in defaults apply
// with data stored under ./data. Returns the config and the path actually
// loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default("."), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A .env beside the binary can carry OLLAMA_BASE_URL, LLM_BASE_URL, etc.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "audit":
		runAudit()
	case "repair":
		runRepair()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("localrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingest steps, watch events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if n, rebuildErr := components.Lifecycle.Rebuild(ctx); rebuildErr != nil {
		logger.Warn("registry rebuild failed", zap.Error(rebuildErr))
	} else {
		logger.Info("registry rebuilt", zap.Int("documents", n))
	}
	if components.Chats != nil && cfg.Chat.RetentionDays > 0 {
		retention := time.Duration(cfg.Chat.RetentionDays) * 24 * time.Hour
		if n, cleanupErr := components.Chats.Cleanup(ctx, retention); cleanupErr != nil {
			logger.Warn("chat cleanup failed", zap.Error(cleanupErr))
		} else if n > 0 {
			logger.Info("stale chat sessions removed", zap.Int("sessions", n))
		}
	}

	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		lm := components.Lifecycle
		watchOpts := []watcher.Option{}
		if cfg.Watch.DebounceMillis > 0 {
			watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond))
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			cfg.Storage.DocumentsDir,
			func(path string) {
				if _, ingestErr := lm.Ingest(context.Background(), path); ingestErr != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(ingestErr))
				}
			},
			func(filename string) {
				if _, deleteErr := lm.Delete(context.Background(), filename, true); deleteErr != nil {
					logger.Warn("watch delete failed", zap.String("filename", filename), zap.Error(deleteErr))
				}
			},
			watchOpts...,
		)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srvOpts := []server.Option{}
	if components.Keywords != nil {
		srvOpts = append(srvOpts, server.WithKeywordIndex(components.Keywords))
	}
	if components.Chats != nil {
		srvOpts = append(srvOpts, server.WithChatStore(components.Chats))
	}
	if components.LLM != nil {
		srvOpts = append(srvOpts, server.WithLLM(components.LLM))
	}
	srv := server.NewServer(cfg, components.Lifecycle, components.Retriever, components.Store, components.Embedder, logger, srvOpts...)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(stopCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: localrag ingest [flags] <pdf-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, _, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if !info.IsDir() {
		res, err := components.Lifecycle.Ingest(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteIngestResult(os.Stdout, res, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read directory: %v\n", err)
		os.Exit(1)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Printf("No PDF files found in %s\n", path)
		return
	}

	type fileResult struct {
		File   string `json:"file"`
		Chunks int    `json:"chunks,omitempty"`
		Error  string `json:"error,omitempty"`
	}
	bar := progressbar.Default(int64(len(files)), "ingesting")
	results := make([]fileResult, 0, len(files))
	failed := 0
	for _, f := range files {
		bar.Describe(filepath.Base(f))
		entry := fileResult{File: filepath.Base(f)}
		res, ingestErr := components.Lifecycle.Ingest(ctx, f)
		if ingestErr != nil {
			entry.Error = ingestErr.Error()
			failed++
		} else {
			entry.Chunks = res.ChunkCount
		}
		results = append(results, entry)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
	} else {
		for _, r := range results {
			if r.Error != "" {
				fmt.Printf("  FAILED %s: %s\n", r.File, r.Error)
			} else {
				fmt.Printf("  ok %s (%d chunks)\n", r.File, r.Chunks)
			}
		}
		fmt.Printf("Ingested %d of %d file(s)\n", len(files)-failed, len(files))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (default from config)")
	threshold := fs.Float64("threshold", -1, "minimum similarity, 0..1 (default from config)")
	rerank := fs.Bool("rerank", true, "rerank results by keyword overlap")
	answer := fs.Bool("answer", false, "generate an answer with the configured LLM")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: localrag query [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: localrag query [flags] <question>")
		os.Exit(1)
	}

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, cfg, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	opts := index.QueryOptions{
		TopK:      cfg.Retrieval.TopK,
		Threshold: cfg.Retrieval.Threshold,
		Rerank:    cfg.Retrieval.Rerank && *rerank,
	}
	if *topK > 0 {
		opts.TopK = *topK
	}
	if *threshold >= 0 {
		opts.Threshold = *threshold
	}

	ctx := context.Background()
	chunks, err := components.Retriever.Query(ctx, question, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	if *answer {
		if components.LLM == nil {
			fmt.Fprintln(os.Stderr, "LLM is not enabled in config; cannot generate an answer")
			os.Exit(1)
		}
		passages := make([]string, 0, len(chunks))
		for _, c := range chunks {
			passages = append(passages, c.Content)
		}
		text, answerErr := components.LLM.Answer(ctx, question, passages)
		if answerErr != nil {
			fmt.Fprintf(os.Stderr, "Answer generation failed: %v\n", answerErr)
			os.Exit(1)
		}
		if format == cli.OutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(map[string]interface{}{"question": question, "answer": text, "chunks": chunks})
			return
		}
		fmt.Printf("\n%s\n\n", text)
	}
	if err := cli.WriteChunks(os.Stdout, question, chunks, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, _, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	docs, err := components.Lifecycle.ListDocuments(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "remove leftovers even when the document is not registered")
	all := fs.Bool("all", false, "delete every known document")
	confirm := fs.Bool("confirm", false, "required with --all")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *all {
		if !*confirm {
			fmt.Println("Refusing to delete all documents without --confirm")
			os.Exit(1)
		}
		components, _, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()

		res, err := components.Lifecycle.DeleteAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Delete all failed: %v\n", err)
			os.Exit(1)
		}
		if format == cli.OutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
			return
		}
		fmt.Printf("Deleted %d of %d document(s)\n", len(res.Deleted), res.Total)
		for _, f := range res.Failed {
			fmt.Printf("  FAILED %s\n", f)
		}
		if len(res.Failed) > 0 {
			os.Exit(1)
		}
		return
	}

	if fs.NArg() < 1 {
		fmt.Println("Usage: localrag delete [flags] <filename>")
		os.Exit(1)
	}
	filename := fs.Arg(0)

	components, _, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	res, err := components.Lifecycle.Delete(context.Background(), filename, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDeleteResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !res.Success {
		os.Exit(1)
	}
}

func runAudit() {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, _, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	report, err := components.Lifecycle.AuditConsistency(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audit failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRepair() {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components, _, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	res, err := components.Lifecycle.RepairOrphans(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Repair failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRepairResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if len(res.Failed) > 0 {
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		components, cfg, logger := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()

		ctx := context.Background()
		stats, err := components.Store.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Vector store stats failed: %v\n", err)
			os.Exit(1)
		}
		status = map[string]interface{}{
			"vector_store":        stats,
			"embedding_available": components.Embedder.Available(ctx),
		}
		if components.Keywords != nil {
			if count, countErr := components.Keywords.Count(); countErr == nil {
				status["keyword_chunks"] = count
			}
		}
		if components.LLM != nil {
			status["llm_available"] = components.LLM.Available(ctx)
		}
		status["config"] = map[string]interface{}{
			"embedding_model":      cfg.Embedding.Model,
			"embedding_dimensions": cfg.Embedding.Dimensions,
			"vector_backend":       cfg.Storage.VectorBackend,
			"top_k":                cfg.Retrieval.TopK,
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		keys := make([]string, 0, len(status))
		for k := range status {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := json.Marshal(status[k])
			fmt.Printf("%-20s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return s, nil
}

// Components holds initialized services.
type Components struct {
	Store     vectorstore.Store
	Embedder  embedding.Embedder
	Keywords  keyword.Index
	Registry  *registry.Registry
	Lifecycle *lifecycle.Manager
	Retriever *index.Manager
	LLM       *llm.Client
	Chats     *chat.Store
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Chats != nil {
		_ = c.Chats.Close()
	}
}

// mustInitialize is the common CLI path: load config, build a logger and all
// components, rebuild the registry from disk, or exit with a message.
func mustInitialize(configPath string) (*Components, *config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if _, err := components.Lifecycle.Rebuild(context.Background()); err != nil {
		logger.Warn("registry rebuild failed", zap.Error(err))
	}
	return components, cfg, logger
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var embedder embedding.Embedder = embedding.NewOllamaEmbedder(embedding.OllamaConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	}, embedding.WithLogger(logger))
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	store, err := vectorstore.New(vectorstore.Options{
		Backend:        cfg.Storage.VectorBackend,
		Dimensions:     cfg.Embedding.Dimensions,
		EmbeddingModel: cfg.Embedding.Model,
		Path:           cfg.Storage.BoltPath,
		URL:            cfg.Storage.ChromaURL,
		Collection:     cfg.Storage.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	var keywords keyword.Index
	if cfg.Storage.BleveIndexPath != "" {
		bleveIdx, bleveErr := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if bleveErr != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize keyword index: %w", bleveErr)
		}
		keywords = bleveIdx
	}

	var llmClient *llm.Client
	if cfg.LLM.Enabled {
		llmClient = llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	}

	reg := registry.New()
	lcOpts := []lifecycle.Option{lifecycle.WithLogger(logger)}
	if keywords != nil {
		lcOpts = append(lcOpts, lifecycle.WithKeywordIndex(keywords))
	}
	if llmClient != nil && cfg.LLM.Condense {
		lcOpts = append(lcOpts, lifecycle.WithCondenser(llmClient))
	}
	lm := lifecycle.NewManager(cfg, embedder, store, reg, lcOpts...)

	retriever := index.NewManager(embedder, store, index.WithLogger(logger))

	var chats *chat.Store
	if cfg.Chat.Enabled {
		chats, err = chat.NewStore(cfg.Storage.ChatDBPath)
		if err != nil {
			_ = store.Close()
			if keywords != nil {
				_ = keywords.Close()
			}
			return nil, fmt.Errorf("failed to initialize chat store: %w", err)
		}
	}

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Keywords:  keywords,
		Registry:  reg,
		Lifecycle: lm,
		Retriever: retriever,
		LLM:       llmClient,
		Chats:     chats,
	}, nil
}

func printUsage() {
	fmt.Println(`localrag - Local PDF retrieval-augmented search

Usage:
  localrag server [flags]             Start the HTTP server
  localrag ingest [flags] <pdf|dir>   Ingest a PDF (or every PDF in a directory)
  localrag query [flags] <question>   Retrieve relevant chunks for a question
  localrag list [flags]               List registered documents
  localrag delete [flags] <filename>  Delete a document from all stores
  localrag audit [flags]              Check cross-store consistency
  localrag repair [flags]             Remove orphaned data found by audit
  localrag status [flags]             Show store and provider status
  localrag version                    Show version
  localrag help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/localrag/config.yaml,
                     falling back to ./config.yaml, then built-in defaults)
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Query Flags:
  --top-k int          Number of chunks to retrieve
  --threshold float    Minimum similarity, 0..1
  --rerank             Rerank results by keyword overlap (default: true)
  --answer             Generate an answer with the configured LLM

Delete Flags:
  --force              Remove leftovers even when the document is not registered
  --all --confirm      Delete every known document

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty
                     (--server "") to read the stores directly.

Examples:
  localrag server
  localrag ingest report.pdf
  localrag ingest ./data/documents
  localrag query "What was Q3 revenue?"
  localrag query --answer "What was Q3 revenue?"
  localrag delete report.pdf
  localrag delete --all --confirm
  localrag audit
  localrag status --output json`)
}
