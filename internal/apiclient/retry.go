package apiclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy acota los reintentos de lectura. Attempts cuenta el intento inicial.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// GetWithRetry repite GET ante fallos de transporte hasta agotar la política.
// Un sobre con success:false no se reintenta.
func (c *Client) GetWithRetry(ctx context.Context, path string, out any, policy RetryPolicy) error {
	if policy.Attempts <= 1 {
		return c.Get(ctx, path, out)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := c.Get(ctx, path, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrEmptyData) {
			return backoff.Permanent(err)
		}
		c.logger.Debug("api read retry",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.Attempts-1)),
		ctx,
	)
	return backoff.Retry(op, b)
}
