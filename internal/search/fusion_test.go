package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aris-rag/aris/internal/store"
)

func scored(content string, index int, score float64) store.ScoredChunk {
	return store.ScoredChunk{Content: content, Index: index, Score: score}
}

func TestFuse_EmptyInput(t *testing.T) {
	assert.Empty(t, Fuse(nil, 60))
	assert.Empty(t, Fuse([][]store.ScoredChunk{{}, {}}, 60))
}

func TestFuse_SingleListContribution(t *testing.T) {
	list := []store.ScoredChunk{
		scored("first", 0, 0.9),
		scored("second", 1, 0.5),
	}

	fused := Fuse([][]store.ScoredChunk{list}, 60)
	require.Len(t, fused, 2)
	// rank is zero-based: contributions 1/61 and 1/62, rounded to 6 decimals.
	assert.Equal(t, 0.016393, fused[0].Score)
	assert.Equal(t, 0.016129, fused[1].Score)
	assert.Equal(t, "first", fused[0].Content)
}

func TestFuse_AccumulatesAcrossLists(t *testing.T) {
	dense := []store.ScoredChunk{scored("shared", 3, 0.8), scored("dense only", 1, 0.6)}
	sparse := []store.ScoredChunk{scored("sparse only", 2, 4.2), scored("shared", 3, 1.1)}

	fused := Fuse([][]store.ScoredChunk{dense, sparse}, 60)
	require.Len(t, fused, 3)

	// shared: 1/61 + 1/62 beats the single-list 1/61 contributions.
	assert.Equal(t, "shared", fused[0].Content)
	assert.Equal(t, 3, fused[0].Index)
	assert.Equal(t, 0.032522, fused[0].Score)
}

func TestFuse_TiesKeepFirstEncounterOrder(t *testing.T) {
	// a and b mirror each other's ranks, so both score 1/61 + 1/62.
	listOne := []store.ScoredChunk{scored("a", 0, 0.9), scored("b", 1, 0.8)}
	listTwo := []store.ScoredChunk{scored("b", 1, 3.0), scored("a", 0, 2.0)}

	fused := Fuse([][]store.ScoredChunk{listOne, listTwo}, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, fused[0].Score, fused[1].Score)
	assert.Equal(t, "a", fused[0].Content)
	assert.Equal(t, "b", fused[1].Content)
}

func TestFuse_IdentityIsContentAndIndex(t *testing.T) {
	// Same text at two different positions stays two results.
	listOne := []store.ScoredChunk{scored("dup", 0, 0.9)}
	listTwo := []store.ScoredChunk{scored("dup", 7, 0.9)}

	fused := Fuse([][]store.ScoredChunk{listOne, listTwo}, 60)
	assert.Len(t, fused, 2)
}

func TestFuse_OrdersByUnroundedScores(t *testing.T) {
	// winner scores exactly 1/1000; rival scores 1/2000 + 1/2001, a
	// quarter-millionth less. Both round to 0.001000, so ordering on the
	// rounded values would tie and fall back to encounter order, where
	// rival comes first. The raw sums must decide.
	listOne := make([]store.ScoredChunk, 0, 1001)
	for i := 0; i < 1000; i++ {
		listOne = append(listOne, scored(fmt.Sprintf("filler one %d", i), 100+i, 1.0))
	}
	listOne = append(listOne, scored("rival", 1, 1.0))

	listTwo := []store.ScoredChunk{scored("winner", 0, 1.0)}

	listThree := make([]store.ScoredChunk, 0, 1002)
	for i := 0; i < 1001; i++ {
		listThree = append(listThree, scored(fmt.Sprintf("filler three %d", i), 5000+i, 1.0))
	}
	listThree = append(listThree, scored("rival", 1, 1.0))

	fused := Fuse([][]store.ScoredChunk{listOne, listTwo, listThree}, 999)

	winnerPos, rivalPos := -1, -1
	for i, r := range fused {
		switch r.Content {
		case "winner":
			winnerPos = i
		case "rival":
			rivalPos = i
		}
	}
	require.NotEqual(t, -1, winnerPos)
	require.NotEqual(t, -1, rivalPos)
	assert.Less(t, winnerPos, rivalPos)
	assert.Equal(t, 0.001, fused[winnerPos].Score)
	assert.Equal(t, 0.001, fused[rivalPos].Score)
}

func TestFuse_NonPositiveKDefaults(t *testing.T) {
	list := []store.ScoredChunk{scored("only", 0, 1.0)}

	fused := Fuse([][]store.ScoredChunk{list}, 0)
	require.Len(t, fused, 1)
	assert.Equal(t, 0.016393, fused[0].Score)
}

func TestFuse_SmallerKWeighsTopRanksHarder(t *testing.T) {
	list := []store.ScoredChunk{scored("top", 0, 1.0), scored("next", 1, 0.9)}

	fused := Fuse([][]store.ScoredChunk{list}, 1)
	require.Len(t, fused, 2)
	assert.Equal(t, 0.5, fused[0].Score)
	assert.InDelta(t, 0.333333, fused[1].Score, 1e-9)
}
