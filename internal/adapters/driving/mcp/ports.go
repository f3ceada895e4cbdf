package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval runs hybrid retrieval. Required.
	Retrieval driving.RetrievalService

	// Answer generates grounded answers. The ask tool is omitted without it.
	Answer driving.AnswerService

	// Index reports statistics. The stats tool and resource are omitted without it.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
