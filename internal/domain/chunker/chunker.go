// Package chunker splits extracted document text into overlapping word windows.
package chunker

import "strings"

// Defaults match the upstream ingestion policy.
const (
	DefaultChunkSize = 512
	DefaultOverlap   = 50
)

// Chunker produces overlapping word-window chunks from raw text.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. Non-positive chunkSize falls back to DefaultChunkSize;
// a negative overlap falls back to DefaultOverlap.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into consecutive windows of up to chunkSize whitespace-delimited
// tokens. The window start advances by max(chunkSize-overlap, 1) tokens, which
// keeps the sequence finite even when overlap >= chunkSize. Windows that are
// empty after trimming are skipped. Empty input yields a nil slice.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	if stride < 1 {
		stride = 1
	}

	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// ChunkSize returns the configured window size in tokens.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured window overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }
