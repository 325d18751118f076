// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Registered document persistence
//   - MessageStore: Append-only chat log keyed by (owner, document)
//   - NamespaceStore: Per-document vector partitions
//   - IndexStateStore: Completion markers stored alongside namespaces
//   - BlobFetcher: Downloads document bytes
//   - NormaliserRegistry: Extracts text from fetched bytes
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Rephrases questions and generates answers
//   - IdentityProvider: Supplies the current user
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Locker: Per-document ingestion lock. Without it concurrent first
//     questions may both ingest; idempotent upserts make them converge.
//   - PromptStore: Custom prompt templates. Without it defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
