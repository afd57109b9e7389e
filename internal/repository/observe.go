package repository

import (
	"context"
	"errors"
	"time"

	"places-api/internal/apperr"

	"github.com/rs/zerolog"
)

// observe logs the duration of a store operation. Use as
//
//	defer observe(ctx, "places.get")(&err)
func observe(ctx context.Context, op string) func(errp *error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)

	return func(errp *error) {
		if errp != nil && *errp != nil && !expected(*errp) {
			logger.Warn().Str("op", op).Dur("dur", time.Since(start)).Err(*errp).Msg("store operation failed")
			return
		}
		logger.Debug().Str("op", op).Dur("dur", time.Since(start)).Msg("store operation")
	}
}

// expected reports errors caused by the caller rather than the store.
func expected(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || apperr.IsValidation(err)
}
