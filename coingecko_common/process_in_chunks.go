package coingecko_common

import (
	"context"
	"fmt"
)

// ChunkMapFetcher fetches items in chunks of at most chunkLimit, sequentially,
// and merges the per-chunk maps. Chunks are spaced by the HTTP client's rate
// limiter. The first failing chunk fails the whole fetch.
func ChunkMapFetcher[T any](
	ctx context.Context,
	items []string,
	chunkLimit int,
	fetchFunc func(context.Context, []string) (map[string]T, error),
) (map[string]T, error) {
	merged := make(map[string]T, len(items))

	for i, chunk := range splitChunks(items, chunkLimit) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, err := fetchFunc(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d (%d items): %w", i+1, len(chunk), err)
		}
		for id, value := range part {
			merged[id] = value
		}
	}

	return merged, nil
}

func splitChunks(items []string, size int) [][]string {
	if len(items) == 0 || size <= 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for len(items) > size {
		chunks = append(chunks, items[:size:size])
		items = items[size:]
	}
	return append(chunks, items)
}
