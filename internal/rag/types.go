// Package rag implements the retrieval-augmented query pipeline: expand
// the question, retrieve and rerank candidate chunks, assemble a bounded
// context, generate an answer, sanitize it, and attach source
// attributions.
package rag

// QueryRequest is a user question against one knowledge base.
type QueryRequest struct {
	// Query is the question text.
	Query string `json:"query"`

	// KnowledgeBaseID selects the knowledge base; zero means the
	// system default.
	KnowledgeBaseID int64 `json:"kb_id"`
}

// Candidate is a retrieved chunk flowing through the pipeline. It is
// transient: produced during a query and never persisted.
type Candidate struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string

	// Embedding is the chunk's stored vector, carried for relevance
	// scoring in the attributor.
	Embedding []float32
}

// Source attributes part of an answer to a document passage.
type Source struct {
	// Document is the display name of the originating document.
	Document string `json:"document"`

	// Content is the full chunk text that contributed to the answer.
	Content string `json:"content"`

	// Preview is the first part of the content.
	Preview string `json:"content_preview"`

	// Relevance is a 0-100 score from embedding similarity, or nil
	// when scoring was not possible.
	Relevance *float64 `json:"relevance,omitempty"`

	// Metadata carries chunk provenance with vector-valued fields
	// removed.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Answer is the final response returned to the caller.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Query   string   `json:"query"`
}

// NoInformationAnswer is returned when retrieval finds nothing. An empty
// knowledge base is a normal state, not an error.
const NoInformationAnswer = "No relevant information was found in the knowledge base for this question."

// EmptyAnswerApology substitutes for an empty or absent model response.
const EmptyAnswerApology = "Sorry, I could not generate an answer to your question. Please try rephrasing it."
