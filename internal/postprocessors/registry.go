package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from generic config.
// Config is a map of processor-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any, tok driven.Tokenizer) (driven.PostProcessor, error)

// Stage names a processor and its config within a pipeline definition.
type Stage struct {
	Name   string
	Config map[string]any
}

// Registry maps processor names to their builders.
// All processors built by one registry share its tokenizer.
type Registry struct {
	builders  map[string]BuilderFunc
	tokenizer driven.Tokenizer
}

// NewRegistry creates a new processor registry. tok may be nil.
func NewRegistry(tok driven.Tokenizer) *Registry {
	return &Registry{
		builders:  make(map[string]BuilderFunc),
		tokenizer: tok,
	}
}

// Register adds a processor builder to the registry.
// Name should be unique and match the processor's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given config.
// Returns error if the processor name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg, r.tokenizer)
}

// BuildPipeline builds every stage in order.
func (r *Registry) BuildPipeline(stages ...Stage) (*Pipeline, error) {
	processors := make([]driven.PostProcessor, 0, len(stages))
	for _, stage := range stages {
		processor, err := r.Build(stage.Name, stage.Config)
		if err != nil {
			return nil, err
		}
		processors = append(processors, processor)
	}
	return NewPipeline(processors...), nil
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
