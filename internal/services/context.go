package services

import (
	"context"

	"convolab/pkg/logger"
)

// WithUserID stores the authenticated user id under the key the logger reads.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, logger.UserIdKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(logger.UserIdKey).(int64)
	return id, ok
}
