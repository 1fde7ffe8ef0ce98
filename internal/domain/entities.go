package domain

// Document is an uploaded PDF reduced to its page texts.
type Document struct {
	FileName string
	Pages    []string
}

// Chunk is a bounded window of page text, the unit of embedding and retrieval.
type Chunk struct {
	Seq    int    `json:"seq"`
	Page   int    `json:"page"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

type ScoredChunk struct {
	Chunk Chunk
	// Distance is the cosine distance to the query (lower is nearer).
	Distance float64
}

// IndexMetadata is persisted next to the vector index as page_details.json.
type IndexMetadata struct {
	IndexID     string `json:"pdf_index"`
	Title       string `json:"page_details_title"`
	Description string `json:"document_description"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Answer is the result of one question turn.
type Answer struct {
	Text    string
	Sources []string
}

// Object names under index/<id>/.
const (
	IndexFile       = "index.db"
	MetadataFile    = "page_details.json"
	ReservationFile = ".reserved"
)
