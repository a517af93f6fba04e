package helper

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDeadline(t *testing.T) {
	assert.NoError(t, CheckDeadline(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, CheckDeadline(ctx), context.Canceled)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", TruncateText("abc", 10))
	assert.Equal(t, "abc", TruncateText("abcdef", 3))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 0), "non-positive limit leaves input alone")

	// "é" is two bytes; cutting mid-rune must back off to the rune start.
	s := "aé"
	cut := TruncateText(s, 2)
	assert.Equal(t, "a", cut)
	assert.True(t, strings.HasPrefix(s, cut))
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2}, chunks[0])
	assert.Equal(t, []int{5}, chunks[2])

	assert.Len(t, Chunk([]int{1, 2, 3}, 10), 1)
	assert.Nil(t, Chunk([]int(nil), 2))
	assert.Len(t, Chunk([]int{1, 2, 3}, 0), 1, "non-positive size falls back to a single chunk")
}
