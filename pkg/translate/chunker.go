package translate

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/pkoukk/tiktoken-go"
)

const chunkEncoding = "cl100k_base"

// CountTokens estimates the token cost of a text. Falls back to a rough
// character heuristic when the encoding is unavailable.
func CountTokens(text string) int {
	encoding, err := tiktoken.GetEncoding(chunkEncoding)
	if err != nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// SplitIntoChunks divides a long text into sentence-aligned chunks that each
// stay under maxTokens. Texts already under budget come back as a single
// chunk. Sentence boundaries are never broken, so one oversized sentence
// becomes its own chunk.
func SplitIntoChunks(text string, maxTokens int) ([]string, error) {
	if maxTokens <= 0 || CountTokens(text) <= maxTokens {
		return []string{text}, nil
	}

	doc, err := prose.NewDocument(text, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return []string{text}, err
	}

	var (
		chunks  []string
		current strings.Builder
		tokens  int
	)

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			tokens = 0
		}
	}

	for _, sentence := range doc.Sentences() {
		t := CountTokens(sentence.Text)
		if tokens+t > maxTokens {
			flush()
		}
		current.WriteString(sentence.Text)
		current.WriteString(" ")
		tokens += t
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}, nil
	}
	return chunks, nil
}
