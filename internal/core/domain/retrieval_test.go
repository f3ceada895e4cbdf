package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetrieveOptions(t *testing.T) {
	opts := DefaultRetrieveOptions()
	assert.Equal(t, 5, opts.TopK)
	assert.InDelta(t, 0.7, opts.SemanticWeight, 1e-9)
	assert.NoError(t, opts.Validate())
}

func TestRetrieveOptions_Validate(t *testing.T) {
	tests := []struct {
		name  string
		opts  RetrieveOptions
		valid bool
	}{
		{"zero top_k", RetrieveOptions{TopK: 0, SemanticWeight: 0.5}, false},
		{"negative weight", RetrieveOptions{TopK: 3, SemanticWeight: -0.1}, false},
		{"weight above one", RetrieveOptions{TopK: 3, SemanticWeight: 1.01}, false},
		{"lexical only", RetrieveOptions{TopK: 3, SemanticWeight: 0}, true},
		{"semantic only", RetrieveOptions{TopK: 3, SemanticWeight: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidInput))
			}
		})
	}
}
