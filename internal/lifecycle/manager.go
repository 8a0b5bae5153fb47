// Package lifecycle orchestrates the document lifecycle: ingestion,
// deletion, listing, and consistency repair across the documents
// directory, the vector index, the keyword index, and the registry.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/chunker"
	"github.com/TWAKATitan/Local-RAG/internal/config"
	"github.com/TWAKATitan/Local-RAG/internal/embedding"
	"github.com/TWAKATitan/Local-RAG/internal/extract"
	"github.com/TWAKATitan/Local-RAG/internal/keyword"
	"github.com/TWAKATitan/Local-RAG/internal/models"
	"github.com/TWAKATitan/Local-RAG/internal/registry"
	"github.com/TWAKATitan/Local-RAG/internal/vectorstore"
)

// Condenser rewrites extracted text into a shorter form before chunking.
type Condenser interface {
	Condense(ctx context.Context, text string) (string, error)
	Available(ctx context.Context) bool
}

// Extractor turns a document file into ordered pages of text.
type Extractor interface {
	Extract(path string) (*extract.Result, error)
}

// Manager coordinates every store a document lives in.
type Manager struct {
	cfg       *config.Config
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     vectorstore.Store
	keywords  keyword.Index // optional
	registry  *registry.Registry
	condenser Condenser // optional
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeywordIndex mirrors ingested chunks into a keyword index.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(m *Manager) { m.keywords = idx }
}

// WithCondenser enables LLM condensing of extracted text before chunking.
func WithCondenser(c Condenser) Option {
	return func(m *Manager) { m.condenser = c }
}

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithExtractor overrides the PDF extractor.
func WithExtractor(e Extractor) Option {
	return func(m *Manager) { m.extractor = e }
}

// NewManager creates a lifecycle manager.
func NewManager(
	cfg *config.Config,
	embedder embedding.Embedder,
	store vectorstore.Store,
	reg *registry.Registry,
	opts ...Option,
) *Manager {
	m := &Manager{
		cfg:       cfg,
		extractor: extract.NewExtractor(),
		chunker:   chunker.New(cfg.Chunking.TargetTokens, cfg.Chunking.OverlapTokens, cfg.Chunking.MinTokens),
		embedder:  embedder,
		store:     store,
		registry:  reg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ingest processes the PDF at path end to end: extract, archive the raw
// text, optionally condense, chunk, embed, and store. Batches already
// persisted before a failure are left in place; re-ingesting the same file
// overwrites them by chunk ID.
func (m *Manager) Ingest(ctx context.Context, path string) (*models.IngestResult, error) {
	start := time.Now()
	filename := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}

	extractStart := time.Now()
	extracted, err := m.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	if extracted.Empty() {
		return nil, fmt.Errorf("no text extracted from %s", filename)
	}
	extractTime := time.Since(extractStart)
	text := extracted.Text()

	if err := m.writeArtifact(m.cfg.Storage.ProcessedDir, rawArtifactName(filename), text); err != nil {
		m.logger.Warn("failed to archive raw text", zap.String("file", filename), zap.Error(err))
	}

	result := &models.IngestResult{
		Filename:    filename,
		PageCount:   extracted.PageCount(),
		CharCount:   extracted.CharCount(),
		ExtractTime: extractTime,
	}

	chunkInput := text
	if m.cfg.LLM.Condense && m.condenser != nil && m.condenser.Available(ctx) {
		condensed, changed := m.condenseText(ctx, filename, text)
		if changed {
			chunkInput = condensed
			result.Condensed = true
			result.CondensedLen = len([]rune(condensed))
			if err := m.writeArtifact(m.cfg.Storage.SummariesDir, summaryArtifactName(filename), condensed); err != nil {
				m.logger.Warn("failed to write summary", zap.String("file", filename), zap.Error(err))
			}
		}
	}

	chunks, err := m.chunker.Chunk(chunkInput, filename, chunker.StrategySemantic)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking produced nothing for %s", filename)
	}
	result.ChunkCount = len(chunks)

	embedStart := time.Now()
	if err := m.storeChunks(ctx, chunks); err != nil {
		return nil, err
	}
	result.EmbedTime = time.Since(embedStart)

	if m.keywords != nil {
		docs := make([]keyword.ChunkDoc, len(chunks))
		for i, c := range chunks {
			docs[i] = keyword.ChunkDoc{
				ChunkID:    c.ChunkID,
				SourceFile: c.Metadata.SourceFile,
				ChunkIndex: c.Metadata.ChunkIndex,
				Content:    c.Content,
			}
		}
		if err := m.keywords.IndexChunks(ctx, docs); err != nil {
			m.logger.Warn("keyword indexing failed", zap.String("file", filename), zap.Error(err))
		}
	}

	result.TotalTime = time.Since(start)
	m.registry.Put(&models.Document{
		Filename:       filename,
		OriginalPath:   path,
		ProcessedAt:    time.Now().UTC(),
		ProcessingTime: result.TotalTime,
		PageCount:      result.PageCount,
		CharacterCount: result.CharCount,
		ChunkCount:     result.ChunkCount,
		StorageStatus:  models.StorageStatusPermanent,
	})

	m.logger.Info("document ingested",
		zap.String("file", filename),
		zap.Int("pages", result.PageCount),
		zap.Int("chunks", result.ChunkCount),
		zap.Duration("took", result.TotalTime))
	return result, nil
}

// storeChunks embeds and persists chunks in fixed-size batches. The batches
// run sequentially; the first failure aborts the rest and leaves earlier
// batches in place.
// condenseBlockChars bounds how much text goes to the condenser per call so
// a long document does not exceed the model's context window.
const condenseBlockChars = 4000

// condenseText condenses text block by block. A block whose condensing fails
// or comes back empty is kept raw, so one provider hiccup cannot lose
// content. Returns the assembled text and whether any block was condensed.
func (m *Manager) condenseText(ctx context.Context, filename, text string) (string, bool) {
	blocks := splitBlocks(text, condenseBlockChars)
	out := make([]string, 0, len(blocks))
	changed := false
	for i, block := range blocks {
		condensed, err := m.condenser.Condense(ctx, block)
		if err != nil || strings.TrimSpace(condensed) == "" {
			if err != nil {
				m.logger.Warn("condense block failed, keeping raw text",
					zap.String("file", filename), zap.Int("block", i), zap.Error(err))
			}
			out = append(out, block)
			continue
		}
		out = append(out, strings.TrimSpace(condensed))
		changed = true
	}
	return strings.Join(out, "\n\n"), changed
}

// splitBlocks groups paragraphs into blocks of at most maxChars. A single
// paragraph above maxChars becomes its own block rather than being split.
func splitBlocks(text string, maxChars int) []string {
	var blocks []string
	var buf []string
	size := 0
	flush := func() {
		if len(buf) > 0 {
			blocks = append(blocks, strings.Join(buf, "\n\n"))
			buf = buf[:0]
			size = 0
		}
	}
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pl := len([]rune(p))
		if len(buf) > 0 && size+pl > maxChars {
			flush()
		}
		buf = append(buf, p)
		size += pl
	}
	flush()
	return blocks
}

func (m *Manager) storeChunks(ctx context.Context, chunks []models.TextChunk) error {
	if !m.embedder.Available(ctx) {
		return fmt.Errorf("embedding provider unavailable")
	}
	batchSize := m.cfg.Chunking.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := lo + batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", lo, hi, err)
		}
		// A zero vector marks a chunk the provider could not embed.
		// Storing one would make it a spurious near-origin match later.
		records := make([]vectorstore.Record, 0, len(batch))
		for i, c := range batch {
			if embedding.IsZeroVector(vectors[i]) {
				m.logger.Warn("chunk not embedded, skipping",
					zap.String("chunk_id", c.ChunkID))
				continue
			}
			records = append(records, vectorstore.Record{
				ChunkID: c.ChunkID,
				Vector:  vectors[i],
				Content: c.Content,
				Meta:    c.Metadata,
			})
		}
		if len(records) == 0 {
			return fmt.Errorf("embed batch %d-%d: no usable vectors", lo, hi)
		}
		if err := m.store.Add(ctx, records); err != nil {
			return fmt.Errorf("store batch %d-%d: %w", lo, hi, err)
		}
	}
	return nil
}

// Delete removes a document from every store it lives in. Each store is
// attempted independently; one failing does not stop the others. Deleting
// an unregistered document is refused unless force is set, so residual
// data from a crashed ingest can still be cleaned up.
func (m *Manager) Delete(ctx context.Context, filename string, force bool) (*models.DeleteResult, error) {
	result := &models.DeleteResult{Filename: filename, Forced: force}

	_, registered := m.registry.Get(filename)
	if !registered && !force {
		result.Message = fmt.Sprintf("%s is not registered; use force to remove residual data", filename)
		return result, nil
	}

	// Vectors.
	removedVectors, err := m.store.DeleteWhere(ctx, vectorstore.BySource(filename))
	if err != nil {
		result.Failed = append(result.Failed, models.StoreError{Store: models.StoreVectors, Err: err.Error()})
	}
	if removedVectors > 0 {
		result.Removed = append(result.Removed, models.StoreVectors)
	}

	// Keyword mirror.
	if m.keywords != nil {
		n, kwErr := m.keywords.DeleteBySource(ctx, filename)
		if kwErr != nil {
			m.logger.Warn("keyword delete failed", zap.String("file", filename), zap.Error(kwErr))
			result.Failed = append(result.Failed, models.StoreError{Store: models.StoreKeywords, Err: kwErr.Error()})
		} else if n > 0 {
			result.Removed = append(result.Removed, models.StoreKeywords)
		}
	}

	// Original file.
	if removed, err := removeIfPresent(filepath.Join(m.cfg.Storage.DocumentsDir, filename)); err != nil {
		result.Failed = append(result.Failed, models.StoreError{Store: models.StoreFile, Err: err.Error()})
	} else if removed {
		result.Removed = append(result.Removed, models.StoreFile)
	}

	// Derived artifacts.
	artifactsRemoved := false
	for _, p := range []string{
		filepath.Join(m.cfg.Storage.ProcessedDir, rawArtifactName(filename)),
		filepath.Join(m.cfg.Storage.SummariesDir, summaryArtifactName(filename)),
	} {
		removed, err := removeIfPresent(p)
		if err != nil {
			result.Failed = append(result.Failed, models.StoreError{Store: models.StoreArtifacts, Err: err.Error()})
			continue
		}
		artifactsRemoved = artifactsRemoved || removed
	}
	if artifactsRemoved {
		result.Removed = append(result.Removed, models.StoreArtifacts)
	}

	if m.registry.Delete(filename) {
		result.Removed = append(result.Removed, models.StoreRegistry)
	}

	result.Success = len(result.Removed) > 0
	switch {
	case result.Success && len(result.Failed) == 0:
		result.Message = fmt.Sprintf("removed %s from %s", filename, strings.Join(result.Removed, ", "))
	case result.Success:
		result.Message = fmt.Sprintf("partially removed %s; %d store(s) failed", filename, len(result.Failed))
	case result.NoOp():
		result.Message = fmt.Sprintf("nothing to remove for %s", filename)
	default:
		result.Message = fmt.Sprintf("failed to remove %s", filename)
	}
	return result, nil
}

// DeleteAll removes every known document, then clears the indexes and the
// registry so nothing survives a partial per-document failure.
func (m *Manager) DeleteAll(ctx context.Context) (*models.DeleteAllResult, error) {
	names, err := m.knownDocuments(ctx)
	if err != nil {
		return nil, err
	}

	out := &models.DeleteAllResult{Total: len(names)}
	for _, name := range names {
		res, err := m.Delete(ctx, name, true)
		if err != nil {
			out.Failed = append(out.Failed, name)
			continue
		}
		out.Results = append(out.Results, res)
		if res.Success || res.NoOp() {
			out.Deleted = append(out.Deleted, name)
		} else {
			out.Failed = append(out.Failed, name)
		}
	}

	if err := m.store.Clear(ctx); err != nil {
		return out, fmt.Errorf("clear vector store: %w", err)
	}
	if m.keywords != nil {
		if err := m.keywords.Clear(ctx); err != nil {
			m.logger.Warn("keyword index clear failed", zap.Error(err))
		}
	}
	m.registry.Clear()
	return out, nil
}

// ListDocuments scans the documents directory and reconciles it with the
// vector index. Files present on disk are listed even when the registry has
// no record for them; their chunk counts come from the index.
func (m *Manager) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	files, err := m.listPDFs()
	if err != nil {
		return nil, err
	}
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector sources: %w", err)
	}

	docs := make([]*models.Document, 0, len(files))
	for _, name := range files {
		if doc, ok := m.registry.Get(name); ok {
			docs = append(docs, doc)
			continue
		}
		doc := &models.Document{
			Filename:     name,
			OriginalPath: filepath.Join(m.cfg.Storage.DocumentsDir, name),
			ChunkCount:   sources[name],
		}
		if doc.ChunkCount > 0 {
			doc.StorageStatus = models.StorageStatusPermanent
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// AuditConsistency cross-checks the documents directory, the registry, and
// the vector index. It reports divergence and changes nothing.
func (m *Manager) AuditConsistency(ctx context.Context) (*models.ConsistencyReport, error) {
	files, err := m.listPDFs()
	if err != nil {
		return nil, err
	}
	fileSet := make(map[string]struct{}, len(files))
	for _, f := range files {
		fileSet[f] = struct{}{}
	}
	records := m.registry.Filenames()
	recordSet := make(map[string]struct{}, len(records))
	for _, r := range records {
		recordSet[r] = struct{}{}
	}
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector sources: %w", err)
	}

	report := &models.ConsistencyReport{
		TotalFiles:   len(files),
		TotalRecords: len(records),
		TotalVectors: len(sources),
	}

	var missingRecords, missingFiles, orphanedVectors, missingVectors []string
	for _, f := range files {
		if _, ok := recordSet[f]; !ok {
			missingRecords = append(missingRecords, f)
		}
		if sources[f] == 0 {
			missingVectors = append(missingVectors, f)
		}
	}
	for _, r := range records {
		if _, ok := fileSet[r]; !ok {
			missingFiles = append(missingFiles, r)
		}
	}
	for src := range sources {
		if _, ok := fileSet[src]; !ok {
			orphanedVectors = append(orphanedVectors, src)
		}
	}
	sort.Strings(orphanedVectors)

	addIssue := func(kind string, names []string) {
		if len(names) == 0 {
			return
		}
		report.Issues = append(report.Issues, models.ConsistencyIssue{
			Type:      kind,
			Filenames: names,
			Count:     len(names),
		})
	}
	addIssue(models.IssueMissingRecords, missingRecords)
	addIssue(models.IssueMissingFiles, missingFiles)
	addIssue(models.IssueOrphanedVectors, orphanedVectors)
	addIssue(models.IssueMissingVectors, missingVectors)

	report.Consistent = len(report.Issues) == 0
	return report, nil
}

// RepairOrphans removes vector records whose source file no longer exists.
// Each orphan goes through a forced Delete so registry entries and
// artifacts are cleaned up with it.
func (m *Manager) RepairOrphans(ctx context.Context) (*models.RepairResult, error) {
	report, err := m.AuditConsistency(ctx)
	if err != nil {
		return nil, err
	}
	result := &models.RepairResult{}
	for _, issue := range report.Issues {
		if issue.Type != models.IssueOrphanedVectors {
			continue
		}
		result.Orphans = issue.Filenames
	}
	for _, name := range result.Orphans {
		res, err := m.Delete(ctx, name, true)
		if err != nil || !res.Success {
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Repaired = append(result.Repaired, name)
	}
	if len(result.Orphans) > 0 {
		m.logger.Info("orphan repair finished",
			zap.Int("orphans", len(result.Orphans)),
			zap.Int("repaired", len(result.Repaired)),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

// Rebuild reconstructs the registry by scanning the documents directory
// and cross-checking the vector index. Existing entries are replaced
// wholesale.
func (m *Manager) Rebuild(ctx context.Context) (int, error) {
	files, err := m.listPDFs()
	if err != nil {
		return 0, err
	}
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return 0, fmt.Errorf("vector sources: %w", err)
	}

	docs := make(map[string]*models.Document)
	for _, name := range files {
		chunkCount := sources[name]
		if chunkCount == 0 {
			// On disk but never ingested; not a registry entry.
			continue
		}
		path := filepath.Join(m.cfg.Storage.DocumentsDir, name)
		doc := &models.Document{
			Filename:      name,
			OriginalPath:  path,
			ChunkCount:    chunkCount,
			StorageStatus: models.StorageStatusPermanent,
		}
		if info, err := os.Stat(path); err == nil {
			doc.ProcessedAt = info.ModTime().UTC()
		}
		docs[name] = doc
	}
	m.registry.Replace(docs)
	m.logger.Info("registry rebuilt", zap.Int("documents", len(docs)))
	return len(docs), nil
}

// knownDocuments returns the union of registry entries, files on disk, and
// vector sources, for bulk deletion.
func (m *Manager) knownDocuments(ctx context.Context) ([]string, error) {
	names := make(map[string]struct{})
	for _, n := range m.registry.Filenames() {
		names[n] = struct{}{}
	}
	files, err := m.listPDFs()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		names[f] = struct{}{}
	}
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector sources: %w", err)
	}
	for s := range sources {
		names[s] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// listPDFs returns the PDF filenames in the documents directory, sorted.
// A missing directory is an empty library, not an error.
func (m *Manager) listPDFs() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Storage.DocumentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) writeArtifact(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func removeIfPresent(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func rawArtifactName(filename string) string {
	return stem(filename) + "_raw.txt"
}

func summaryArtifactName(filename string) string {
	return stem(filename) + "_summary.txt"
}
