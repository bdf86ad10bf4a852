package api

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"

	"github.com/jacentio/directories/store"
)

// withConflictRetry runs op again while its transaction is cancelled by a
// concurrent write. Other errors, including failed conditions, are returned
// as is.
func (s *Server) withConflictRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.opts.ConflictRetries, retry.NewExponential(s.opts.RetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if isTransactionConflict(err) {
			s.logger.Debug("retrying after transaction conflict", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransactionConflict(err error) bool {
	var txErr *store.TransactionError
	return errors.As(err, &txErr) && txErr.Conflicting()
}
