package embedcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) IsAvailable(context.Context) bool { return true }

func (c *countingEmbedder) ModelName() string { return "test-model" }

func TestLruEmbedder_CachesRepeatedText(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	_, err = cached.Embed(context.Background(), "different text")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLruEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{err: fmt.Errorf("boom")}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.Embed(context.Background(), "text")
	require.Error(t, err)
	_, err = cached.Embed(context.Background(), "text")
	require.Error(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLruEmbedder_ReturnsCopies(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, _ := cached.Embed(context.Background(), "text")
	first[0] = 999
	second, _ := cached.Embed(context.Background(), "text")
	require.Equal(t, float32(1), second[0])
}

func TestWrap_PassthroughWhenDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Nil(t, WrapLruCacheToEmbedder(nil, 16, time.Minute))
}
