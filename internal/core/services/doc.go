// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path is Retriever -> PromptBuilder -> AnswerGenerator, run by
// QueryService. Ingestion is IngestionService, which shares the Embedder
// with retrieval so both sides stamp the same model version.
package services
