package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"character", StrategyCharacter},
		{"recursive_character", StrategyRecursive},
		{"semantic", StrategySemantic},
		{"SEMANTIC", StrategySemantic},
		{"", StrategyRecursive},
		{"word", StrategyRecursive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStrategy(tt.in), tt.in)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	s := New(StrategyRecursive, 512, 50)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n  "))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	s := New(StrategyRecursive, 512, 50)

	chunks := s.Split("A short document that fits in one chunk.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short document that fits in one chunk.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_IndexesAreSequential(t *testing.T) {
	s := New(StrategyRecursive, 20, 0)
	text := strings.Repeat("one sentence here. ", 10)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Content)
	}
}

func TestSplit_RecursivePrefersParagraphs(t *testing.T) {
	s := New(StrategyRecursive, 10, 0)

	chunks := s.Split("aaa\n\nbbb\n\nccc")
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaa\n\nbbb", chunks[0].Content)
	assert.Equal(t, "ccc", chunks[1].Content)
}

func TestSplit_CharacterSplitsOnNewline(t *testing.T) {
	s := New(StrategyCharacter, 8, 0)

	chunks := s.Split("one\ntwo\nthree")
	require.Len(t, chunks, 2)
	assert.Equal(t, "one\ntwo", chunks[0].Content)
	assert.Equal(t, "three", chunks[1].Content)
}

func TestSplit_OverlapRepeatsTrailingPieces(t *testing.T) {
	s := New(StrategyRecursive, 7, 3)

	chunks := s.Split("aa bb cc dd")
	require.Len(t, chunks, 3)
	assert.Equal(t, "aa bb", chunks[0].Content)
	assert.Equal(t, "bb cc", chunks[1].Content)
	assert.Equal(t, "cc dd", chunks[2].Content)
}

func TestSplit_ChunksRespectSizeBound(t *testing.T) {
	s := New(StrategyRecursive, 50, 10)
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 30)

	for _, c := range s.Split(text) {
		assert.LessOrEqual(t, len(c.Content), 50)
	}
}

func TestNew_SemanticCapsChunkSize(t *testing.T) {
	s := New(StrategySemantic, 512, 50)
	assert.Equal(t, 256, s.size)

	small := New(StrategySemantic, 100, 20)
	assert.Equal(t, 100, small.size)
}

func TestNew_SanitizesDegenerateParams(t *testing.T) {
	s := New(StrategyRecursive, 0, -1)
	assert.Equal(t, DefaultChunkSize, s.size)
	assert.Equal(t, DefaultChunkOverlap, s.overlap)

	tight := New(StrategyRecursive, 10, 50)
	assert.Equal(t, 5, tight.overlap)
}
