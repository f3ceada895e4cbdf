// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion and retrieval to function:
//
//   - Tokenizer: Measures text length in model tokens for the chunker
//   - EmbeddingProvider: Turns text into vectors in document or query mode
//   - ChunkStore: Atomic chunk persistence plus vector and lexical search
//   - Normaliser: Transforms raw file bytes into document text
//   - SettingsStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Chat completions. Without it, answering and query rewriting are disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
