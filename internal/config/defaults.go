package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = "./data/documents"
	}
	if cfg.Storage.ProcessedDir == "" {
		cfg.Storage.ProcessedDir = "./data/processed"
	}
	if cfg.Storage.SummariesDir == "" {
		cfg.Storage.SummariesDir = "./data/summaries"
	}
	if cfg.Storage.VectorBackend == "" {
		cfg.Storage.VectorBackend = "bolt"
	}
	if cfg.Storage.BoltPath == "" {
		cfg.Storage.BoltPath = "./data/vectors/vectors.db"
	}
	if cfg.Storage.ChromaURL == "" {
		cfg.Storage.ChromaURL = "http://localhost:8000"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "pdf_documents"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/indices/bleve"
	}
	if cfg.Storage.ChatDBPath == "" {
		cfg.Storage.ChatDBPath = "./data/chat/sessions.db"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Chunking.TargetTokens == 0 {
		cfg.Chunking.TargetTokens = 512
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 50
	}
	if cfg.Chunking.MinTokens == 0 {
		cfg.Chunking.MinTokens = 100
	}
	if cfg.Chunking.BatchSize == 0 {
		cfg.Chunking.BatchSize = 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Threshold == 0 {
		cfg.Retrieval.Threshold = 0.001
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:1234"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.Chat.RetentionDays == 0 {
		cfg.Chat.RetentionDays = 30
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 500
	}
}
