// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline, the model and course resolver, retrieval and
// the chat orchestrator live here. Services depend only on the domain and
// the port interfaces, never on a concrete adapter.
package services
