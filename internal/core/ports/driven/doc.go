// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps chunks and queries to fixed-dimension vectors
//   - IndexStore / VectorIndex: Builds, persists, loads and searches vectors
//   - CorpusLoader: Reads the tabular complaint corpus
//   - Normaliser: Turns a corpus record into a cleaned Document
//   - PostProcessor: Segments documents into overlapping chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, retrieval works but answers cannot be generated.
//   - PromptStore: Without it, the built-in answer template is used.
//   - QueryCache: Without it, every retrieve call re-embeds the query.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
