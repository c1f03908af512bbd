// Package search provides record search over title and notes: Meilisearch
// when configured and healthy, PostgreSQL full-text search as the fallback.
package search

// Query is a search request from the API layer.
type Query struct {
	Text       string
	FilterLane string
	Limit      int
	Offset     int
}

// Result is one search hit.
type Result struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Lane    string `json:"lane"`
	Rank    int    `json:"rank"`
}

// Response is the payload returned to the API layer.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// RecordDoc is the indexed shape of a record.
type RecordDoc struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes"`
	Lane  string `json:"lane"`
	Rank  int    `json:"rank"`
}
