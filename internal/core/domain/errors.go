package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrUnauthenticated indicates no user identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSourceUnavailable indicates the document blob could not be fetched or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmbeddingService indicates an embedding call failed (transport, quota or decode).
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrVectorStore indicates a namespace check, upsert or query failed.
	ErrVectorStore = errors.New("vector store error")

	// ErrGeneration indicates a rephrase or answer model call failed.
	ErrGeneration = errors.New("generation error")

	// ErrPersistence indicates a chat turn could not be read or written.
	ErrPersistence = errors.New("persistence error")

	// ErrQuotaExceeded indicates the per-document question limit was reached.
	ErrQuotaExceeded = errors.New("question limit reached")

	// ErrLockTimeout indicates the per-document ingestion lock could not be acquired.
	ErrLockTimeout = errors.New("lock timeout")
)

// UserMessage maps a pipeline error to the single message shown to a user.
// The text is phrased as an error so it cannot be mistaken for an answer.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "You need to sign in before chatting with a document."
	case errors.Is(err, ErrNotFound):
		return "That document could not be found."
	case errors.Is(err, ErrInvalidInput):
		return "The question was empty or invalid."
	case errors.Is(err, ErrQuotaExceeded):
		return "You have reached the question limit for this document."
	case errors.Is(err, ErrSourceUnavailable):
		return "The document could not be downloaded or read. Please try again."
	case errors.Is(err, ErrEmbeddingService):
		return "The embedding service failed while preparing the document. Please try again."
	case errors.Is(err, ErrVectorStore):
		return "The document index is unavailable right now. Please try again."
	case errors.Is(err, ErrGeneration):
		return "The answer could not be generated. Please resend your question."
	case errors.Is(err, ErrPersistence):
		return "The conversation could not be saved. Please resend your question."
	case errors.Is(err, ErrLockTimeout):
		return "The document is still being prepared. Please try again shortly."
	default:
		return "Something went wrong while answering. Please try again."
	}
}
