package mcp

import (
	"github.com/custodia-labs/loom-gateway/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval searches course material.
	Retrieval driving.RetrievalService

	// Catalog lists courses and their documents.
	Catalog driving.CatalogService

	// Chat answers questions. Optional; without it ask_course is not registered.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
