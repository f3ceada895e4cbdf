package driven

// Tokenizer measures text in the token units of the downstream models.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Name identifies the encoding (e.g., "cl100k_base").
	Name() string
}
