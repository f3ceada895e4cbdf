// Package tokenizer measures text in model tokens using tiktoken BPE encodings.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Tiktoken implements the interface.
var _ driven.Tokenizer = (*Tiktoken)(nil)

// DefaultEncoding matches the generation models' tokenizer.
const DefaultEncoding = "gpt-4"

var loaderOnce sync.Once

// Tiktoken counts tokens with a BPE encoding bundled into the binary,
// so no network access is needed at runtime.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

// New loads the encoding for a model name (e.g. "gpt-4") or an
// encoding name (e.g. "cl100k_base"). Empty selects DefaultEncoding.
func New(encoding string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.EncodingForModel(encoding)
	if err != nil {
		enc, err = tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
		}
	}

	return &Tiktoken{enc: enc, name: encoding}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Name returns the encoding or model name the tokenizer was created with.
func (t *Tiktoken) Name() string {
	return t.name
}
