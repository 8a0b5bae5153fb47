// Package chunker splits normalized text into bounded, overlapping retrieval
// units with sentence-aligned boundaries.
package chunker

import (
	"fmt"
	"strings"
	"time"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// Strategy selects how text is grouped into chunks.
type Strategy string

const (
	// StrategySemantic accumulates sentences greedily up to the target token
	// size with a suffix overlap between adjacent chunks. Primary strategy.
	StrategySemantic Strategy = "semantic"
	// StrategyParagraph groups whole paragraphs on blank-line boundaries,
	// falling back to sentence accumulation for oversized paragraphs.
	StrategyParagraph Strategy = "paragraph"
)

// Chunker produces TextChunks with token-aware boundaries. Segmentation has
// no side effects and is deterministic: identical input and configuration
// yield byte-identical chunk boundaries.
type Chunker struct {
	targetTokens  int
	overlapTokens int
	minTokens     int
}

// New creates a chunker. targetTokens bounds chunk size, overlapTokens
// bounds the shared suffix between adjacent chunks, and minTokens is the
// smallest chunk the chunker will close mid-document.
func New(targetTokens, overlapTokens, minTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 512
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if minTokens < 0 {
		minTokens = 0
	}
	if minTokens > targetTokens {
		minTokens = targetTokens
	}
	return &Chunker{
		targetTokens:  targetTokens,
		overlapTokens: overlapTokens,
		minTokens:     minTokens,
	}
}

// Chunk segments text for sourceFile using the given strategy.
// Unknown strategies are an error, not a silent fallback.
func (c *Chunker) Chunk(text, sourceFile string, strategy Strategy) ([]models.TextChunk, error) {
	switch strategy {
	case StrategySemantic, "":
		return c.Segment(text, sourceFile), nil
	case StrategyParagraph:
		return c.SegmentParagraphs(text, sourceFile), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %s", strategy)
	}
}

// Segment splits text into sentence-aligned chunks of at most targetTokens
// (except a single sentence that alone exceeds the target, which is kept
// intact rather than split mid-sentence). Adjacent chunks share a suffix
// overlap: the trailing sentences of the closed chunk whose combined token
// count fits overlapTokens reappear at the start of the next chunk.
func (c *Chunker) Segment(text, sourceFile string) []models.TextChunk {
	sentences := SplitSentences(Normalize(text))
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.TextChunk
	var buf []string
	bufTokens := 0

	for _, sentence := range sentences {
		st := CountTokens(sentence)
		if len(buf) > 0 && bufTokens+st > c.targetTokens && bufTokens >= c.minTokens {
			chunks = append(chunks, c.buildChunk(sourceFile, len(chunks), strings.Join(buf, " ")))
			buf = append(c.overlapSuffix(buf), sentence)
			bufTokens = 0
			for _, s := range buf {
				bufTokens += CountTokens(s)
			}
			continue
		}
		buf = append(buf, sentence)
		bufTokens += st
	}
	// Final flush: the trailing buffer is kept even below minTokens because
	// it is the last content of the document.
	if len(buf) > 0 {
		chunks = append(chunks, c.buildChunk(sourceFile, len(chunks), strings.Join(buf, " ")))
	}
	return chunks
}

// overlapSuffix returns the trailing sentences of buf whose combined token
// count is within the overlap budget, taken from the end backward until the
// budget is exhausted. A single-sentence buffer yields no overlap.
func (c *Chunker) overlapSuffix(buf []string) []string {
	if len(buf) <= 1 || c.overlapTokens <= 0 {
		return nil
	}
	budget := c.overlapTokens
	start := len(buf)
	for i := len(buf) - 1; i >= 0; i-- {
		t := CountTokens(buf[i])
		if t > budget {
			break
		}
		budget -= t
		start = i
	}
	if start == len(buf) {
		return nil
	}
	out := make([]string, len(buf)-start)
	copy(out, buf[start:])
	return out
}

// SegmentParagraphs groups paragraphs (blank-line boundaries) into chunks of
// at most targetTokens. A paragraph that alone exceeds the target is split
// with the sentence strategy instead. Mid-document groups below minTokens
// are discarded; the final group is kept regardless.
func (c *Chunker) SegmentParagraphs(text, sourceFile string) []models.TextChunk {
	paragraphs := strings.Split(Normalize(text), "\n\n")

	var contents []string
	var buf []string
	bufTokens := 0
	flush := func(final bool) {
		if len(buf) == 0 {
			return
		}
		if final || bufTokens >= c.minTokens {
			contents = append(contents, strings.Join(buf, "\n\n"))
		}
		buf = buf[:0]
		bufTokens = 0
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pt := CountTokens(p)
		if pt > c.targetTokens {
			flush(false)
			for _, ch := range c.Segment(p, sourceFile) {
				contents = append(contents, ch.Content)
			}
			continue
		}
		if len(buf) > 0 && bufTokens+pt > c.targetTokens {
			flush(false)
		}
		buf = append(buf, p)
		bufTokens += pt
	}
	flush(true)

	chunks := make([]models.TextChunk, 0, len(contents))
	for i, content := range contents {
		chunks = append(chunks, c.buildChunk(sourceFile, i, content))
	}
	return chunks
}

func (c *Chunker) buildChunk(sourceFile string, index int, content string) models.TextChunk {
	return models.TextChunk{
		ChunkID:    models.ChunkID(sourceFile, index),
		Content:    content,
		TokenCount: CountTokens(content),
		Metadata: models.ChunkMetadata{
			SourceFile: sourceFile,
			ChunkIndex: index,
			CharCount:  len(content),
			WordCount:  len(strings.Fields(content)),
			CreatedAt:  time.Now().UTC(),
		},
	}
}
