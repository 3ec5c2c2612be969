// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logplugin

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry runs fn once and, while it fails, retries it with exponential
// backoff and jitter up to maxAttempts more times (so at most
// maxAttempts+1 calls), stopping early on ctx cancellation. It is a convenience for
// plugin authors implementing Initialize or Finalize, both of which the
// contract allows to perform I/O (e.g. authenticating to an artifact
// store, or flushing a bulk upload) without the host itself retrying
// anything on the plugin's behalf.
func Retry(ctx context.Context, maxAttempts uint64, base time.Duration, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(base)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(maxAttempts, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
