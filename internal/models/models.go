package models

// Chunk represents a bounded fragment of a corpus document
type Chunk struct {
	Content  string
	Source   string
	Position int
}

// ScoredChunk is a chunk returned from a similarity search
type ScoredChunk struct {
	Chunk
	Similarity float32
}

// Turn is one entry of a conversation transcript
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
