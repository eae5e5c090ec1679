package gemini

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/muikit/muikit"
)

const encodingName = "cl100k_base"

// loadEncoding fetches the BPE ranks once per process; a failure is remembered too.
var loadEncoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	return tiktoken.GetEncoding(encodingName)
})

// Tiktoken counts cl100k_base tokens.
type Tiktoken struct{}

// Count implements muikit.TokenCounter.
func (Tiktoken) Count(text string) (int, error) {
	enc, err := loadEncoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// NewTokenCounter returns the default counter: Tiktoken, then a word count.
func NewTokenCounter() muikit.TokenCounter {
	return &muikit.FallbackCounter{Primary: Tiktoken{}, Fallback: muikit.WordCounter{}}
}
