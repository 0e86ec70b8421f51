package db

// KNNQuery is the input for vector similarity search.
// TagFilters pre-filter candidates by exact TAG match, ANDed together.
type KNNQuery struct {
	IndexName    string
	TagFilters   map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
