// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Ingestion
//
//   - DocumentSource: Lists input files in the data folder
//   - Extractor / ExtractorRegistry: Turns a file into TextUnits
//   - Splitter: Chunks TextUnits
//   - UnitStore: Persists extracted units and chunks per file
//   - EmbeddingRecordStore: Persists embedding records per source file
//   - TrackerStore: Persists processed sets per stage
//   - VectorIndexStore: Merges records into the persisted index
//
// # Query
//
//   - VectorIndex: Nearest-neighbour search over the current index
//   - SessionStore: Per-session conversation memory
//   - QueryReformulator / AnswerGenerator: Generation collaborators
//
// # AI Services
//
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Chat completion used by the generators
//
// # Configuration
//
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
