// Package chunk splits documents into indexable chunks. Three
// strategies are offered: plain character splitting on newlines,
// recursive character splitting over a separator hierarchy, and a
// semantic approximation that is recursive splitting with a tighter
// chunk size.
package chunk

import (
	"strings"

	"github.com/aris-rag/aris/internal/store"
)

// Strategy selects how text is divided.
type Strategy string

const (
	StrategyCharacter Strategy = "character"
	StrategyRecursive Strategy = "recursive_character"
	StrategySemantic  Strategy = "semantic"
)

// ParseStrategy maps a request string to a strategy, defaulting to
// recursive character splitting for unknown values.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyCharacter:
		return StrategyCharacter
	case StrategySemantic:
		return StrategySemantic
	default:
		return StrategyRecursive
	}
}

// Strategies lists the supported strategy names.
func Strategies() []string {
	return []string{
		string(StrategyCharacter),
		string(StrategyRecursive),
		string(StrategySemantic),
	}
}

const (
	// DefaultChunkSize is the target chunk length in bytes.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is how much consecutive chunks share.
	DefaultChunkOverlap = 50
	// semanticMaxSize caps the semantic strategy's chunk length so
	// chunks track paragraph and sentence boundaries more closely.
	semanticMaxSize = 256
)

// recursiveSeparators is ordered coarsest to finest; the splitter uses
// the first one present in the text and recurses into the rest for
// oversized pieces.
var recursiveSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter divides text into overlapping chunks.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New creates a splitter for the given strategy. Non-positive size or
// negative overlap fall back to the defaults.
func New(strategy Strategy, size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}

	switch strategy {
	case StrategyCharacter:
		return &Splitter{size: size, overlap: overlap, separators: []string{"\n"}}
	case StrategySemantic:
		if size > semanticMaxSize {
			size = semanticMaxSize
		}
		if overlap >= size {
			overlap = size / 2
		}
		return &Splitter{size: size, overlap: overlap, separators: recursiveSeparators}
	default:
		return &Splitter{size: size, overlap: overlap, separators: recursiveSeparators}
	}
}

// Split divides text into chunks with sequential indexes. Empty or
// whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []store.Chunk {
	pieces := s.split(text, s.separators)

	chunks := make([]store.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, store.Chunk{Content: p, Index: len(chunks)})
	}
	return chunks
}

// split divides text on the coarsest separator present, recursing into
// finer separators for pieces that still exceed the chunk size, and
// merges the rest back up to size with overlap.
func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var out, pending []string
	flush := func() {
		if len(pending) > 0 {
			out = append(out, s.merge(pending, sep)...)
			pending = nil
		}
	}
	for _, piece := range pieces {
		if len(piece) < s.size {
			pending = append(pending, piece)
			continue
		}
		flush()
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	flush()
	return out
}

// merge joins adjacent pieces with their separator until the chunk size
// is reached, then starts the next chunk from the trailing pieces that
// fit in the overlap window.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var out []string
	var current []string
	total := 0
	sepLen := len(sep)

	emit := func() {
		joined := strings.TrimSpace(strings.Join(current, sep))
		if joined != "" {
			out = append(out, joined)
		}
	}

	for _, p := range pieces {
		extra := len(p)
		if len(current) > 0 {
			extra += sepLen
		}
		if total+extra > s.size && len(current) > 0 {
			emit()
			for len(current) > 0 && (total > s.overlap || total+extra > s.size) {
				drop := len(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
				extra = len(p)
				if len(current) > 0 {
					extra += sepLen
				}
			}
		}
		current = append(current, p)
		total += extra
	}
	emit()
	return out
}
