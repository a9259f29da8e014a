package extractor

import (
	"sync"

	"github.com/go-ego/gse"
)

// Tokenizer splits Chinese text into words.
type Tokenizer interface {
	Cut(text string) []string
}

// GSETokenizer segments text with gse. The dictionary is loaded on first
// use because it takes a noticeable moment and a good amount of memory.
type GSETokenizer struct {
	once sync.Once
	seg  gse.Segmenter
	err  error
}

// NewGSETokenizer returns a tokenizer backed by the embedded dictionary.
func NewGSETokenizer() *GSETokenizer {
	return &GSETokenizer{}
}

// Cut returns the words of text using HMM for unknown words. It returns
// nil if the dictionary could not be loaded.
func (t *GSETokenizer) Cut(text string) []string {
	if t.Load() != nil {
		return nil
	}
	return t.seg.Cut(text, true)
}

// Load loads the dictionary if needed and reports a load failure.
func (t *GSETokenizer) Load() error {
	t.once.Do(func() {
		t.seg, t.err = gse.New()
	})
	return t.err
}
