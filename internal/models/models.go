package models

// Document is a raw source document before ingestion (a file on disk or
// a scraped page).
type Document struct {
	ID      string
	URL     string
	Title   string
	Content string
}

// Chunk is a unit of stored context: one text with its embedding and a
// provenance payload. Once upserted it is owned by the vector store and
// only ever replaced whole, keyed by ID.
type Chunk struct {
	ID      string
	Text    string
	Vector  []float32
	Payload map[string]interface{}
}

// SearchResult is a retrieved chunk with its similarity score.
// Higher score means closer.
type SearchResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// TokenChunk is the wire shape of one streamed record: an incremental
// piece of the answer, or the terminal marker (empty token, done=true).
type TokenChunk struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

// StreamToken is the in-process form of a streamed fragment. Err is set
// when the stream ended abnormally; such a token is final and carries no
// terminal marker.
type StreamToken struct {
	Token string
	Done  bool
	Err   error
}
