package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/retry"
)

// batchEmbedder embeds texts through an ai.Embedder with bounded retries.
type batchEmbedder struct {
	embedder   ai.Embedder
	maxRetries int
	retryDelay time.Duration
	metrics    *Metrics
	logger     *slog.Logger
}

// embed returns one vector per text. Every failure is reported wrapped in
// core.ErrProvider unless it is a structural error such as a dimension
// mismatch.
func (be *batchEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	be.logger.Debug("generating embeddings", "texts", len(texts))

	var vectors [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		vectors, err = be.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			be.logger.Warn("embedding call failed", "texts", len(texts), "err", err)
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
		}
		return nil
	}, be.maxRetries+1, be.retryDelay)

	switch {
	case err == nil:
		be.metrics.embedding(outcomeOK)
		return vectors, nil
	case core.IsStructural(err), errors.Is(err, core.ErrProvider):
		be.metrics.embedding(outcomeFailed)
		return nil, err
	default:
		be.metrics.embedding(outcomeFailed)
		return nil, fmt.Errorf("%w: %w", core.ErrProvider, err)
	}
}
