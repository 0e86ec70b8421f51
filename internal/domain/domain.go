package domain

import "strconv"

// KeyPrefix namespaces all keys this service writes to the database.
const KeyPrefix = "corpusd:"

// ChunkMeta is the metadata record attached 1:1 to every stored chunk.
type ChunkMeta struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	FileType   string `json:"file_type"`
}

// Map flattens the metadata into string fields for TAG/NUMERIC indexing.
func (m ChunkMeta) Map() map[string]string {
	return map[string]string{
		"doc_id":      m.DocID,
		"filename":    m.Filename,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"file_type":   m.FileType,
	}
}

// Entry is a single stored unit: chunk text, its embedding, and metadata.
// ID is derived as "{doc_id}_{chunk_index}" and is unique within a collection.
type Entry struct {
	ID      string
	Content string
	Meta    ChunkMeta
	Vector  []float32
}

// EntryID builds the deterministic chunk entry id.
func EntryID(docID string, chunkIndex int) string {
	return docID + "_" + strconv.Itoa(chunkIndex)
}

// Hit is a single ranked search result.
// Score is cosine similarity in [0,1]; Distance = 1 - Score.
type Hit struct {
	Content  string
	Meta     ChunkMeta
	Score    float64
	Distance float64
}

// Stats describes the current state of the retrieval core.
type Stats struct {
	TotalChunks    int    `json:"total_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Persistent     bool   `json:"persistent"`
}

// DocInfo is the registry record for an uploaded document.
type DocInfo struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	ChunkCount int    `json:"chunk_count"`
	TextLength int    `json:"text_length"`
	SizeBytes  int64  `json:"size_bytes"`
	UploadedAt int64  `json:"uploaded_at"` // unix millis
}
