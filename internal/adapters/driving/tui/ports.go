// Package tui provides an interactive terminal user interface for sercha-rag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI talks to.
type Ports struct {
	// Retrieval runs hybrid queries. Required.
	Retrieval driving.RetrievalService

	// Answer generates answers. Optional; asking is disabled without it.
	Answer driving.AnswerService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(retrieval driving.RetrievalService, answer driving.AnswerService) *Ports {
	return &Ports{
		Retrieval: retrieval,
		Answer:    answer,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
