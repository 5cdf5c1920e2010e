// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Ingestion Path
//
//   - DocumentSource: Yields documents from the corpus (filesystem)
//   - Normaliser: Turns raw file bytes into a Document
//   - PostProcessor / PostProcessorPipeline: Chunking and chunk annotation
//   - EmbeddingService: Maps text to vectors
//   - VectorIndex: Stores entries and answers nearest-neighbour queries
//   - DocumentStore: Ingestion manifest
//
// # Query Path
//
//   - EmbeddingService and VectorIndex, shared with ingestion
//   - LLMService: Generates the grounded answer
//   - PromptStore: Customisable prompt templates
//
// # Configuration
//
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
